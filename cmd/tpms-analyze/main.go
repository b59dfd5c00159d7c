package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/mrmagicbg/tpms-radio-service/internal/session"
)

// tpms-analyze recomputes summary statistics from a previously exported
// session log file (CSV or JSON) and prints them as indented JSON.
func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s <session-log.csv|session-log.json>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}

	analysis, err := session.AnalyzeLogFile(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Analysis failed: %v\n", err)
		os.Exit(1)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(analysis); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to encode analysis: %v\n", err)
		os.Exit(1)
	}
}
