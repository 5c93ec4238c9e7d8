package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/gocarina/gocsv"
)

// LoadCameras reads a camera catalog CSV with the header
// id,label,lat,lon,endpoint. A leading UTF-8 BOM is ignored.
func LoadCameras(r io.Reader) ([]Camera, error) {
	var cams []Camera
	if err := gocsv.Unmarshal(utfbom.SkipOnly(r), &cams); err != nil {
		return nil, fmt.Errorf("parse camera csv: %w", err)
	}
	for i := range cams {
		cams[i].ID = strings.TrimSpace(cams[i].ID)
		cams[i].Endpoint = strings.TrimSpace(cams[i].Endpoint)
	}
	return cams, nil
}

// LoadCamerasFile opens path and calls LoadCameras.
func LoadCamerasFile(path string) ([]Camera, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open camera csv: %w", err)
	}
	defer f.Close()
	return LoadCameras(f)
}
