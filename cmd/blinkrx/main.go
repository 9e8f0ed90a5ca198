package main

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/blinklink/blinklink/pkg/ber"
	"github.com/blinklink/blinklink/pkg/frameExtract"
	"github.com/blinklink/blinklink/pkg/misc"
	"github.com/blinklink/blinklink/pkg/preambleSync"
	"github.com/blinklink/blinklink/pkg/receiver"
	"github.com/blinklink/blinklink/pkg/resultStore"
	"github.com/blinklink/blinklink/pkg/session"
)

type Config struct {
	SessionPath      string
	CapturePath      string
	Width            int
	Height           int
	RefBits          string
	HTTP_Listen_Addr string
	ResultDBPath     string
	Params           session.Params
}

// Function that reads environment variables and sets config
func (conf *Config) parseEnv() {
	// Check if first arg is a .env file, if so try to parse it below without erroring
	if len(os.Args) > 1 {
		if strings.HasSuffix(os.Args[1], ".env") {
			if err := godotenv.Load(os.Args[1]); err != nil {
				misc.Log("error", fmt.Sprintf("Error loading .env file: %s", err))
			}
		}
	}

	conf.SessionPath = os.Getenv("BLINK_SESSION")
	if conf.SessionPath == "" {
		conf.SessionPath = "session.yaml"
	}

	conf.CapturePath = os.Getenv("BLINK_CAPTURE")
	if conf.CapturePath == "" {
		misc.Log("error", "No capture to decode. Set BLINK_CAPTURE to a raw 8-bit grayscale frame file (or - for stdin).")
		os.Exit(1)
	}

	var err error
	conf.Width, err = strconv.Atoi(os.Getenv("BLINK_WIDTH"))
	if err != nil || conf.Width <= 0 {
		misc.Log("error", "BLINK_WIDTH must be set to the capture frame width in pixels")
		os.Exit(1)
	}
	conf.Height, err = strconv.Atoi(os.Getenv("BLINK_HEIGHT"))
	if err != nil || conf.Height <= 0 {
		misc.Log("error", "BLINK_HEIGHT must be set to the capture frame height in pixels")
		os.Exit(1)
	}

	conf.RefBits = os.Getenv("BLINK_REF_BITS")

	conf.HTTP_Listen_Addr = os.Getenv("BLINK_HTTP_LISTEN_ADDR")
	if conf.HTTP_Listen_Addr == "" {
		conf.HTTP_Listen_Addr = "127.0.0.1:3000"
	}

	conf.ResultDBPath = os.Getenv("BLINK_RESULT_DB")
}

func main() {
	conf := Config{}
	conf.parseEnv()

	params, err := session.Load(conf.SessionPath)
	if err != nil {
		misc.Log("error", fmt.Sprintf("Error loading session: %s", err))
		os.Exit(1)
	}
	conf.Params = params

	misc.Log("info", fmt.Sprintf("Session fingerprint: %04x", params.Fingerprint()))
	misc.Log("info", fmt.Sprintf("FREQ_0: %.1f Hz FREQ_1: %.1f Hz", params.Freq0, params.Freq1))
	misc.Log("info", fmt.Sprintf("Nominal capture rate: %.1f fps (%.2f samples/symbol)", params.CaptureRate, params.SamplesPerSymbol()))

	in := os.Stdin
	if conf.CapturePath != "-" {
		f, err := os.Open(conf.CapturePath)
		if err != nil {
			misc.Log("error", fmt.Sprintf("Error opening capture: %s", err))
			os.Exit(1)
		}
		in = f
	}
	src := frameExtract.NewRawLumaSource(in, conf.Width, conf.Height, params.CaptureRate)

	// Start HTTP server for the live diagnostics chart
	go conf.serveHTTP()

	res, series, err := receiver.DecodeSource(src, params, receiver.Options{})
	if err != nil {
		var syncErr *preambleSync.SyncLostError
		var emptyErr *frameExtract.EmptyCaptureError
		switch {
		case errors.As(err, &syncErr):
			misc.Log("error", fmt.Sprintf("Sync lost: %s", syncErr))
			misc.Log("warning", fmt.Sprintf("Partial decode (%d bits): %s", len(res.Bits), misc.FormatBits(res.Bits)))
		case errors.As(err, &emptyErr):
			misc.Log("error", fmt.Sprintf("Capture unusable: %s", emptyErr))
		default:
			misc.Log("error", fmt.Sprintf("Decode failed: %s", err))
		}
		broadcastSeries(series, res)
		os.Exit(1)
	}

	broadcastSeries(series, res)

	misc.Log("info", fmt.Sprintf("Extracted %d frames (%.2f s)", len(series.Samples), series.Duration()))
	misc.Log("info", fmt.Sprintf("Lock at sample %d score %.3f, effective %.3f samples/symbol", res.Diag.LockIndex, res.Diag.LockScore, res.Diag.EffectiveSamplesPerSymbol))
	misc.Log("info", fmt.Sprintf("Decoded bits    : %s", misc.FormatBits(res.Bits)))
	misc.Log("info", fmt.Sprintf("Resyncs: %d Erasures: %d/%d", res.Diag.Resyncs, res.Diag.Erasures, res.Diag.SymbolsDecoded))

	rec := resultStore.Record{
		Session:                   params.Fingerprint(),
		When:                      time.Now(),
		Bits:                      misc.FormatBits(res.Bits),
		Resyncs:                   res.Diag.Resyncs,
		Erasures:                  res.Diag.Erasures,
		EffectiveSamplesPerSymbol: res.Diag.EffectiveSamplesPerSymbol,
	}

	if conf.RefBits != "" {
		ref, err := misc.ParseBits(conf.RefBits)
		if err != nil {
			misc.Log("error", fmt.Sprintf("Error parsing BLINK_REF_BITS: %s", err))
			os.Exit(1)
		}
		rep, err := ber.Compare(res.Bits, ref, res.Diag.DataDuration, params.LengthTolerance)
		if err != nil {
			// decode stands on its own, only the BER report is unavailable
			misc.Log("error", fmt.Sprintf("BER unavailable: %s", err))
		} else {
			misc.Log("info", fmt.Sprintf("Transmitted bits: %s", conf.RefBits))
			misc.Log("info", fmt.Sprintf("Correct bits: %d/%d", rep.Compared-rep.Errors, rep.Compared))
			misc.Log("info", fmt.Sprintf("Bit error rate (BER): %.4f", rep.BER))
			misc.Log("info", fmt.Sprintf("Data rate: %.2f bits/s", rep.BitsPerSecond))
			rec.BER = rep.BER
			rec.BitsPerSecond = rep.BitsPerSecond
		}
	}

	if conf.ResultDBPath != "" {
		store, err := resultStore.Open(conf.ResultDBPath)
		if err != nil {
			misc.Log("error", fmt.Sprintf("Error opening result store: %s", err))
			os.Exit(1)
		}
		defer store.Close()
		if err := store.Put(rec); err != nil {
			misc.Log("error", fmt.Sprintf("Error storing run: %s", err))
			os.Exit(1)
		}
		misc.Log("info", fmt.Sprintf("Run stored under session %04x", rec.Session))
	}
}
