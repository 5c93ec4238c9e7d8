package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/gocarina/gocsv"

	"github.com/kkgkaundal/sas/internal/camera"
	"github.com/kkgkaundal/sas/internal/config"
	"github.com/kkgkaundal/sas/internal/logging"
)

type checkResult struct {
	ID       string `csv:"id"`
	Label    string `csv:"label"`
	Endpoint string `csv:"endpoint"`
	OK       bool   `csv:"ok"`
	Width    int    `csv:"width"`
	Height   int    `csv:"height"`
	Error    string `csv:"error"`
}

func main() {
	configPath := flag.String("config", "", "Path to YAML config file (default $SAS_CONFIG)")
	csvPath := flag.String("csv", "", "Write a CSV report to this path")
	timeout := flag.Duration("timeout", 15*time.Second, "Per-camera check timeout")
	flag.Parse()

	logger := logging.NewLogger("warn", "text", os.Stderr)

	cfg, err := config.Load(*configPath, logger)
	if err != nil {
		fmt.Println("ERROR loading config:", err)
		os.Exit(1)
	}

	src, err := camera.NewSource(cfg.Stream.Backend, cfg.Stream.ConnectTimeout, logger)
	if err != nil {
		fmt.Println("ERROR camera backend:", err)
		os.Exit(1)
	}
	fmt.Printf("Probing %d cameras with the %s backend\n", len(cfg.Cameras.List), cfg.Stream.Backend)

	results := make([]*checkResult, 0, len(cfg.Cameras.List))
	working := 0
	for _, cam := range cfg.Cameras.List {
		res := checkCamera(src, cam, *timeout)
		results = append(results, res)
		if res.OK {
			working++
			fmt.Printf("  %-10s OK    %dx%d  %s\n", res.ID, res.Width, res.Height, res.Label)
		} else {
			fmt.Printf("  %-10s FAIL  %s\n", res.ID, res.Error)
		}
	}
	fmt.Printf("\n%d of %d cameras delivered a frame\n", working, len(results))

	if *csvPath != "" {
		f, err := os.Create(*csvPath)
		if err != nil {
			fmt.Println("ERROR creating report:", err)
			os.Exit(1)
		}
		if err := gocsv.MarshalFile(&results, f); err != nil {
			f.Close()
			fmt.Println("ERROR writing report:", err)
			os.Exit(1)
		}
		f.Close()
	}

	if working == 0 {
		os.Exit(1)
	}
}

// checkCamera opens cam and reads a single frame.
func checkCamera(src camera.Source, cam config.Camera, timeout time.Duration) *checkResult {
	res := &checkResult{ID: cam.ID, Label: cam.Label, Endpoint: cam.Endpoint}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	reader, err := src.Open(ctx, cam.Endpoint)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	defer reader.Close()

	img, err := reader.Read(ctx)
	if err != nil {
		res.Error = err.Error()
		return res
	}
	b := img.Bounds()
	res.OK = true
	res.Width, res.Height = b.Dx(), b.Dy()
	return res
}
