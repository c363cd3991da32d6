package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/go-opcua/asyncclient/internal/clientapp"
	"github.com/go-opcua/asyncclient/pkg/opcua"
)

func main() {
	app := cli.App{
		Name:  "opcua-client",
		Usage: "Sample async OPC UA client",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "profile",
				Value: "connection.toml",
				Usage: "Path to the TOML connection profile",
			},
			&cli.StringSliceFlag{
				Name:  "node",
				Usage: "A node to monitor, as ns=<namespace>;s=<identifier>. May be repeated",
			},
		},
		Action: func(cCtx *cli.Context) error {
			profile := cCtx.String("profile")
			nodes, err := parseNodeIds(cCtx.StringSlice("node"))
			if err != nil {
				return err
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			return clientapp.Run(ctx, profile, nodes)
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// parseNodeIds parses "ns=<namespace>;s=<identifier>" or
// "ns=<namespace>;i=<identifier>" strings into NodeIds, the two
// identifier forms the sample application supports.
func parseNodeIds(raw []string) ([]opcua.NodeId, error) {
	nodes := make([]opcua.NodeId, 0, len(raw))
	for _, entry := range raw {
		id, err := parseNodeId(entry)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, id)
	}
	return nodes, nil
}

func parseNodeId(entry string) (opcua.NodeId, error) {
	var namespace uint16
	var stringID string
	var numericID uint32
	haveString, haveNumeric := false, false

	for _, part := range strings.Split(entry, ";") {
		kv := strings.SplitN(part, "=", 2)
		if len(kv) != 2 {
			return opcua.NodeId{}, fmt.Errorf("malformed node id segment %q in %q", part, entry)
		}
		key, value := kv[0], kv[1]
		switch key {
		case "ns":
			n, err := strconv.ParseUint(value, 10, 16)
			if err != nil {
				return opcua.NodeId{}, fmt.Errorf("bad namespace in %q: %w", entry, err)
			}
			namespace = uint16(n)
		case "s":
			stringID = value
			haveString = true
		case "i":
			n, err := strconv.ParseUint(value, 10, 32)
			if err != nil {
				return opcua.NodeId{}, fmt.Errorf("bad numeric identifier in %q: %w", entry, err)
			}
			numericID = uint32(n)
			haveNumeric = true
		default:
			return opcua.NodeId{}, fmt.Errorf("unknown node id field %q in %q", key, entry)
		}
	}

	switch {
	case haveString:
		return opcua.StringNodeId(stringID, namespace), nil
	case haveNumeric:
		return opcua.NumericNodeId(numericID, namespace), nil
	default:
		return opcua.NodeId{}, fmt.Errorf("node id %q needs either s= or i=", entry)
	}
}
