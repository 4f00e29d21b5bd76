package main

import (
	"fmt"

	"github.com/wangtaoking1/realtime/log"
)

func testPanic() {
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic has been recovered")
		}
	}()

	log.Panic("dispatcher panicked")
}

func main() {
	defer log.Flush()

	log.Debug("heartbeat sent", "connection_id", "conn-1")
	log.Debugf("heartbeat sent, connection: %s", "conn-1")
	log.V(log.DebugLevel).Info("heartbeat sent", "connection_id", "conn-1")

	log.Info("connection established", "connection_id", "conn-1")
	log.Infof("connection established: %s", "conn-1")

	log.Warn("reconnect scheduled", "attempt", 2)
	log.Warnf("reconnect scheduled, attempt: %d", 2)

	err := fmt.Errorf("connection reset by peer")
	log.Error("read message failed", "err", err)
	log.Errorf("read message failed, with err: %v", err)

	testPanic()

	log.Fatal("gateway exited")
}
