package cmd

// Version is set at build time via:
//
//	go build -ldflags "-X github.com/formpilot/formpilot-cli/cmd.Version=1.0.0"
var Version = "0.1.0"
