package main

import (
	"fmt"

	"github.com/fatih/color"
)

// Populated via -ldflags="-X ...".
var (
	GitRevisionId string
	GitTag        string
)

const helpFooter = `
Configuration is read from --config (YAML, JSON or TOML). Any key may be
overridden from the environment, e.g. VIRTUCAM_ROTATION=180.
Log levels are set with --loglevel or LOGLEVEL, e.g. "info,source=debug".

Please report bugs to: aloha@lanikailabs.com`

// banner prints the program name in color.
func banner() {
	r := color.New(color.FgRed)
	y := color.New(color.FgYellow)
	b := color.New(color.FgCyan)

	//        _      _
	// __   _(_)_ __| |_ _   _  ___ __ _ _ __ ___
	// \ \ / / | '__| __| | | |/ __/ _` | '_ ` _ \
	//  \ V /| | |  | |_| |_| | (_| (_| | | | | | |
	//   \_/ |_|_|   \__|\__,_|\___\__,_|_| |_| |_|

	// Line 1
	r.Printf("       ")
	y.Printf("_     ")
	r.Printf(" _        ")
	b.Println("")

	// Line 2
	r.Printf("__   _")
	y.Printf("(_)_ __")
	r.Printf("| |_ _   _ ")
	b.Println(" ___ __ _ _ __ ___")

	// Line 3
	r.Printf("\\ \\ / /")
	y.Printf(" | '__")
	r.Printf("| __| | | |")
	b.Println("/ __/ _` | '_ ` _ \\")

	// Line 4
	r.Printf(" \\ V /")
	y.Printf("| | |  ")
	r.Printf("| |_| |_| |")
	b.Println(" (_| (_| | | | | | |")

	// Line 5
	r.Printf("  \\_/ ")
	y.Printf("|_|_|  ")
	r.Printf(" \\__|\\__,_|")
	b.Println("\\___\\__,_|_| |_| |_|")
	fmt.Println()
}

func versionString() string {
	v := GitTag
	if v == "" {
		v = "dev"
	}
	if GitRevisionId != "" {
		v += " (" + GitRevisionId + ")"
	}
	return v
}

// version displays information and exits successfully (GNU convention)
func version() {
	fmt.Println("virtucamd", versionString())
	fmt.Println("Copyright 2019 Lanikai Labs LLC. All rights reserved.")
	fmt.Println("Visit https://lanikailabs.com for more information")
}
