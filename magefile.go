//go:build mage

package main

import (
	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Downloads modules and builds both binaries into bin/.
func Build() error {
	if err := sh.Run("go", "mod", "download"); err != nil {
		return err
	}
	if err := sh.RunV("go", "build", "-o", "bin/sas", "./cmd/sas"); err != nil {
		return err
	}
	return sh.RunV("go", "build", "-o", "bin/camtest", "./cmd/camtest")
}

// Builds sas with the OpenCV camera backend. Needs OpenCV installed.
func BuildGoCV() error {
	return sh.RunV("go", "build", "-tags", "gocv", "-o", "bin/sas", "./cmd/sas")
}

func Vet() error {
	return sh.RunV("go", "vet", "./...")
}

// Runs the test suite with the race detector.
func Test() error {
	mg.Deps(Vet)
	return sh.RunV("go", "test", "-race", "./...")
}

// Checks every configured camera and writes camtest.csv.
func CamTest() error {
	mg.Deps(Build)
	return sh.RunV("bin/camtest", "-csv", "camtest.csv")
}
