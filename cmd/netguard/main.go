package main

import (
	"github.com/netxfw/netguard/cmd/netguard/commands"
	"github.com/netxfw/netguard/internal/utils/logger"
)

func main() {
	defer func() { _ = logger.Sync() }()
	commands.Execute()
}
