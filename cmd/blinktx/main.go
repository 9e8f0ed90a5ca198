package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/blinklink/blinklink/pkg/alphaGenerator"
	"github.com/blinklink/blinklink/pkg/misc"
	"github.com/blinklink/blinklink/pkg/session"
)

type Config struct {
	SessionPath string
	Bits        string
	OutputPath  string
	Params      session.Params
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

	conf.Bits = os.Getenv("BLINK_BITS")
	if conf.Bits == "" {
		misc.Log("error", "No bits to transmit. Set BLINK_BITS to a string of 1/0s matching the session payload_bits.")
		os.Exit(1)
	}

	conf.OutputPath = os.Getenv("BLINK_OUTPUT")
	if conf.OutputPath == "" {
		conf.OutputPath = "-"
	}
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

	bits, err := misc.ParseBits(conf.Bits)
	if err != nil {
		misc.Log("error", fmt.Sprintf("Error parsing bits: %s", err))
		os.Exit(1)
	}
	if len(bits) != params.PayloadBits {
		misc.Log("error", fmt.Sprintf("BLINK_BITS carries %d bits but session payload_bits is %d, both sides must agree", len(bits), params.PayloadBits))
		os.Exit(1)
	}

	samples, err := alphaGenerator.Render(params, bits)
	if err != nil {
		misc.Log("error", fmt.Sprintf("Error rendering: %s", err))
		os.Exit(1)
	}

	out := os.Stdout
	if conf.OutputPath != "-" {
		f, err := os.Create(conf.OutputPath)
		if err != nil {
			misc.Log("error", fmt.Sprintf("Error creating output: %s", err))
			os.Exit(1)
		}
		defer f.Close()
		out = f
	}

	misc.Log("info", fmt.Sprintf("Session fingerprint: %04x", params.Fingerprint()))
	misc.Log("info", fmt.Sprintf("Transmitting %d bits: %s", len(bits), conf.Bits))
	misc.Log("info", fmt.Sprintf("FREQ_0: %.1f Hz FREQ_1: %.1f Hz", params.Freq0, params.Freq1))
	misc.Log("info", fmt.Sprintf("Bit duration: %.3f s at %.1f ticks/s (%d frames/symbol)", params.BitDuration, params.RefreshRate, params.FramesPerSymbol()))
	misc.Log("info", fmt.Sprintf("Rendered %d frames (%.2f s including preamble)", len(samples), float64(len(samples))/params.RefreshRate))

	// One "frame,alpha" line per refresh tick, for the display collaborator.
	w := bufio.NewWriter(out)
	for i, alpha := range samples {
		fmt.Fprintf(w, "%d,%.6f\n", i, alpha)
	}
	if err := w.Flush(); err != nil {
		misc.Log("error", fmt.Sprintf("Error writing output: %s", err))
		os.Exit(1)
	}
}
