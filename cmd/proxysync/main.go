// Package main is the entry point for the proxysync controller.
//
// proxysync watches pods and keeps the member list of an httpd
// mod_proxy_balancer in sync with the healthy backend pods it finds.
package main

import (
	"os"

	"github.com/imamik/proxysync/cmd/proxysync/commands"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		os.Exit(1)
	}
}
