package main

/*
Serves the live diagnostics chart: the ROI intensity series with the lock
point marked, pushed to browsers over a websocket.
*/

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"net/http"
	"strconv"

	"github.com/gorilla/websocket"

	"github.com/blinklink/blinklink/pkg/frameExtract"
	"github.com/blinklink/blinklink/pkg/misc"
	"github.com/blinklink/blinklink/pkg/receiver"
)

// Embed all files from static folder to serve over HTTP
//
//go:embed static
var staticWeb embed.FS

// Keep the chart payload small enough for a browser, long recordings get
// decimated before broadcast.
const maxChartPoints = 2000

var clients = make([]*websocket.Conn, 0)
var upgrader = websocket.Upgrader{}
var lastFrame []byte

// Function that handles /ws websocket connections and store clients in global variable
func handleWs(w http.ResponseWriter, r *http.Request) {
	upgrader.CheckOrigin = func(r *http.Request) bool { return true }
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		misc.Log("error", fmt.Sprintf("Error upgrading connection: %s", err))
		return
	}

	clients = append(clients, conn)

	if lastFrame != nil {
		if err := conn.WriteMessage(websocket.TextMessage, lastFrame); err != nil {
			misc.Log("error", fmt.Sprintf("Error sending last chart to client: %s", err))
		}
	}

	misc.Log("info", fmt.Sprintf("Clients: %d", len(clients)))
}

// Function that serves http
func (conf *Config) serveHTTP() {
	fsys := fs.FS(staticWeb)
	html, _ := fs.Sub(fsys, "static")
	fileServer := http.FileServer(http.FS(html))

	http.Handle("/", fileServer)
	http.HandleFunc("/ws", handleWs)

	misc.Log("info", fmt.Sprintf("Starting http server on %s", conf.HTTP_Listen_Addr))
	http.ListenAndServe(conf.HTTP_Listen_Addr, nil)
}

// Function that broadcasts data to all clients
func bcastWs(data []byte) {
	for _, client := range clients {
		err := client.WriteMessage(websocket.TextMessage, data)
		if err != nil {
			misc.Log("error", fmt.Sprintf("%s", err))
			client.Close()
			for i, c := range clients {
				if c == client {
					clients = append(clients[:i], clients[i+1:]...)
				}
			}
		}
	}
}

// broadcastSeries pushes the intensity series and the lock marker as chart
// frames, one [index, value] pair per point.
func broadcastSeries(series frameExtract.Series, res receiver.Result) {
	if len(series.Samples) == 0 {
		return
	}

	step := 1
	if len(series.Samples) > maxChartPoints {
		step = len(series.Samples)/maxChartPoints + 1
	}

	chartFrames := make([][]string, 0, len(series.Samples)/step+1)
	for i := 0; i < len(series.Samples); i += step {
		chartFrames = append(chartFrames, []string{strconv.Itoa(i), fmt.Sprintf("%.3f", series.Samples[i])})
	}

	payload := struct {
		Points    [][]string `json:"points"`
		LockIndex int        `json:"lockIndex"`
		Erasures  int        `json:"erasures"`
		Resyncs   int        `json:"resyncs"`
	}{chartFrames, res.Diag.LockIndex, res.Diag.Erasures, res.Diag.Resyncs}

	chartDataJson, err := json.Marshal(payload)
	if err != nil {
		misc.Log("error", fmt.Sprintf("Error marshalling chart data to json: %s", err))
		return
	}

	lastFrame = chartDataJson
	bcastWs(chartDataJson)
}
