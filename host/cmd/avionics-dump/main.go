// Command avionics-dump is the ground tool for the flight computer's flash.
//
//	avionics-dump capture -device /dev/ttyACM0 -o flight.bin
//	avionics-dump decode [-data log.bin] flight.bin
//	avionics-dump encode [-o param.bin] profile.yaml
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"avionics/core"
)

var commands = map[string]func(args []string) error{
	"capture": runCapture,
	"decode":  runDecode,
	"encode":  runEncode,
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: avionics-dump [flags] capture|decode|encode [args]")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flag.Parse()
	defer glog.Flush()

	// Store and scanner log through core; route it into glog
	core.SetDebugWriter(func(msg string) { glog.V(1).Info(msg) })
	core.SetDebugEnabled(true)

	if flag.NArg() < 1 {
		usage()
		os.Exit(2)
	}
	cmd, ok := commands[flag.Arg(0)]
	if !ok {
		usage()
		os.Exit(2)
	}
	if err := cmd(flag.Args()[1:]); err != nil {
		glog.Errorf("%s: %v", flag.Arg(0), err)
		glog.Flush()
		os.Exit(1)
	}
}
