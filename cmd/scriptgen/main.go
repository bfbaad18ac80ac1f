/*
main.go - Script artifact generator

PURPOSE:
  Serializes the decision engine's descriptor into a content-addressed
  artifact file. Pure packaging: none of the decision logic runs here.

COMMAND-LINE FLAGS:
  -out      Output directory (default: ./artifacts)
  -version  Script version string baked into the descriptor (default: 1)

EXAMPLES:
  ./scriptgen -out ./artifacts -version 1
*/
package main

import (
	"flag"
	"log"

	"github.com/warp/pullpay/script"
)

func main() {
	out := flag.String("out", "./artifacts", "Output directory for the artifact")
	version := flag.String("version", "1", "Script version")
	flag.Parse()

	artifact, err := script.Build(script.EngineDescriptor(*version))
	if err != nil {
		log.Fatalf("Failed to build artifact: %v", err)
	}

	path, err := artifact.WriteFile(*out)
	if err != nil {
		log.Fatalf("Failed to write artifact: %v", err)
	}

	log.Printf("Wrote script artifact %s", path)
	log.Printf("Content address: %s", artifact.Address)
}
