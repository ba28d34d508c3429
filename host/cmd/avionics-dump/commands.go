package main

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"avionics/flash"
	"avionics/host/image"
	"avionics/host/serial"
)

var errArgs = errors.New("wrong number of arguments")

func runCapture(args []string) error {
	fs := flag.NewFlagSet("capture", flag.ContinueOnError)
	device := fs.String("device", "/dev/ttyACM0", "Serial device path")
	out := fs.String("o", "flight.bin", "Output image file")
	idle := fs.Duration("idle", 5*time.Second, "Give up after this long without data")
	if err := fs.Parse(args); err != nil {
		return err
	}

	port, err := serial.Open(serial.DefaultConfig(*device))
	if err != nil {
		return err
	}
	defer port.Close()
	if err := port.Flush(); err != nil {
		glog.Warningf("flush %s: %v", *device, err)
	}

	glog.Infof("capturing from %s", *device)
	img, stats, err := capture(port, flash.Capacity, *idle)
	if err != nil {
		return err
	}
	glog.Infof("captured %d frames, %d dropped, %d bytes of noise skipped", stats.frames, stats.bad, stats.skipped)
	if stats.bad > 0 {
		glog.Warningf("%d frames failed their checksum; dropped pages read as erased", stats.bad)
	}
	return os.WriteFile(*out, img, 0o644)
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ContinueOnError)
	data := fs.String("data", "", "Write the data log to this file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errArgs
	}

	img, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	r, err := image.Inspect(img)
	if err != nil {
		return err
	}
	if r.Problem != "" {
		glog.Warningf("record fails validation: %s", r.Problem)
	}

	out, err := image.MarshalReport(r)
	if err != nil {
		return err
	}
	fmt.Print(string(out))

	if *data != "" {
		log := image.DataLog(img, r)
		glog.Infof("writing %d bytes of data log to %s", len(log), *data)
		return os.WriteFile(*data, log, 0o644)
	}
	return nil
}

func runEncode(args []string) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	out := fs.String("o", "param.bin", "Output parameter region image")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return errArgs
	}

	profile, err := os.ReadFile(fs.Arg(0))
	if err != nil {
		return err
	}
	rec, err := image.LoadProfile(profile)
	if err != nil {
		return err
	}
	param, err := image.Build(rec)
	if err != nil {
		return fmt.Errorf("build image: %w", err)
	}
	glog.Infof("state %s, flags %s", rec.State, rec.Flags)
	return os.WriteFile(*out, param, 0o644)
}
