package main

import (
	"github.com/spf13/pflag"

	"github.com/wangtaoking1/realtime/log"
)

func main() {
	opts := log.NewOptions()
	opts.AddFlags(pflag.CommandLine)
	pflag.CommandLine.Set("log.level", "debug") // For test
	pflag.Parse()

	log.Init(opts)
	defer log.Flush()

	log.Debug("heartbeat sent", "connection_id", "conn-1")
	log.Debugf("heartbeat sent, connection: %s", "conn-1")

	log.V(log.DebugLevel).Info("heartbeat sent", "connection_id", "conn-1")
}
