// Command cantp is a runnable demo of the transport layer: it opens a CAN
// interface, loads a static channel table from an INI file, and periodically
// ticks the scheduler, following the shape of the teacher repo's
// cmd/canopen/main.go (flag-parsed interface selection, a plain ticker loop
// driving the periodic function).
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/fbl/cantp"
	"github.com/fbl/cantp/pkg/can"
	_ "github.com/fbl/cantp/pkg/can/socketcan"
	_ "github.com/fbl/cantp/pkg/can/virtual"
	"github.com/fbl/cantp/pkg/cantpconfig"
)

const defaultPeriodMs = 2

func main() {
	log.SetLevel(log.DebugLevel)

	iface := flag.String("i", "can0", "CAN interface, e.g. can0, vcan0, or a virtualcan host:port")
	ifaceType := flag.String("t", "socketcan", "interface backend: socketcan or virtual")
	cfgPath := flag.String("c", "", "path to the channel configuration .ini file")
	flag.Parse()

	if *cfgPath == "" {
		fmt.Println("missing -c <config.ini>")
		os.Exit(1)
	}

	table, err := cantpconfig.Load(*cfgPath, defaultPeriodMs)
	if err != nil {
		fmt.Printf("failed to load channel config: %v\n", err)
		os.Exit(1)
	}

	bus, err := can.NewBus(*ifaceType, *iface, 500000)
	if err != nil {
		fmt.Printf("could not open interface %v: %v\n", *iface, err)
		os.Exit(1)
	}

	diag := cantp.NewBufferDiag(4096, func(data []byte, result cantp.Result) {
		log.WithField("result", result).Infof("received %d bytes", len(data))
	})

	txIDs := make([]uint32, 0, len(table.Rx)+len(table.Tx))
	for _, c := range table.Rx {
		txIDs = append(txIDs, c.TxID)
	}
	for _, c := range table.Tx {
		txIDs = append(txIDs, c.TxID)
	}
	bridge := cantp.NewBusBridge(bus, txIDs)

	tp, err := cantp.NewCanTp(diag, bridge, table.Rx, table.Tx, defaultPeriodMs, true, log.StandardLogger())
	if err != nil {
		fmt.Printf("failed to build cantp scheduler: %v\n", err)
		os.Exit(1)
	}
	bridge.SetScheduler(tp)

	if err := bus.Subscribe(bridge); err != nil {
		fmt.Printf("failed to subscribe to bus: %v\n", err)
		os.Exit(1)
	}
	if err := bus.Connect(); err != nil {
		fmt.Printf("failed to connect to bus: %v\n", err)
		os.Exit(1)
	}

	ticker := time.NewTicker(defaultPeriodMs * time.Millisecond)
	defer ticker.Stop()
	for range ticker.C {
		tp.PeriodFunction()
	}
}
