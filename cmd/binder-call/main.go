// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// binder-call issues a single transaction against a proxy and prints the
// reply, for exercising a kernel device from the command line the way
// `bureau-proxy-call` exercises a running daemon socket.
package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"github.com/openbinder/binderproxy/binder"
	"github.com/openbinder/binderproxy/budget"
	"github.com/openbinder/binderproxy/internal/kerneltransport"
	"github.com/openbinder/binderproxy/internal/recording"
	"github.com/openbinder/binderproxy/lib/process"
	"github.com/openbinder/binderproxy/lib/version"
	"github.com/openbinder/binderproxy/status"
	"github.com/openbinder/binderproxy/wire"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	var (
		device     string
		handle     int32
		code       uint32
		text       string
		record     bool
		originator uint32
	)

	flagSet := pflag.NewFlagSet("binder-call", pflag.ContinueOnError)
	flagSet.StringVar(&device, "device", "", "path to the ioctl-driven kernel transport device")
	flagSet.Int32Var(&handle, "handle", 0, "kernel handle to transact against")
	flagSet.Uint32Var(&code, "code", uint32(binder.Ping), "transaction code (defaults to PING)")
	flagSet.StringVar(&text, "arg", "", "argument string, sent as a CBOR-encoded value")
	flagSet.BoolVar(&record, "record", false, "capture the transaction and print a transcript checksum afterward")
	flagSet.Uint32Var(&originator, "originator", 0, "calling originator id for budget accounting")
	flagSet.BoolP("help", "h", false, "show help")

	if len(os.Args) > 1 && os.Args[1] == "--version" {
		fmt.Println("binder-call", version.Info())
		return nil
	}

	if err := flagSet.Parse(os.Args[1:]); err != nil {
		if err == pflag.ErrHelp {
			printHelp(flagSet)
			return nil
		}
		return err
	}
	if help, _ := flagSet.GetBool("help"); help {
		printHelp(flagSet)
		return nil
	}
	if device == "" {
		printHelp(flagSet)
		return fmt.Errorf("binder-call: --device is required")
	}

	kernel, err := kerneltransport.Open(device)
	if err != nil {
		return err
	}
	defer kernel.Close()

	tracker := budget.Default()
	object, st := binder.CreateKernel(kernel, handle, binder.StabilityLocal, originator, tracker)
	if st != status.OK {
		return fmt.Errorf("binder-call: creating proxy: %s", st)
	}

	var recorder *recording.Recorder
	if record {
		recorder = recording.New(64)
		recorder.Start()
	}

	data := wire.NewParcel()
	if text != "" {
		if err := data.WriteCBOR(text); err != nil {
			return fmt.Errorf("binder-call: encoding argument: %w", err)
		}
	}
	reply := wire.NewParcel()

	result := object.Transact(binder.TransactionCode(code), data, reply, 0)

	fmt.Printf("status: %s\n", result)
	if reply.Len() > 0 {
		fmt.Printf("reply (%d bytes): %s\n", reply.Len(), hex.EncodeToString(reply.Bytes()))
	}

	if recorder != nil {
		recorder.Record(code, int32(result), data.Bytes(), reply.Bytes())
		recorder.Stop()
		compressed, checksum, err := recorder.Export()
		if err != nil {
			return err
		}
		fmt.Printf("transcript checksum: %s (%d bytes compressed)\n", checksum, len(compressed))
	}

	if result != 0 {
		return fmt.Errorf("binder-call: transaction failed: %s", result)
	}
	return nil
}

func printHelp(flagSet *pflag.FlagSet) {
	fmt.Fprintf(os.Stderr, `binder-call — issue one transaction against a proxy handle.

Usage:
  binder-call --device <path> --handle <n> [flags]

Examples:
  binder-call --device /dev/binderproxy0 --handle 3
  binder-call --device /dev/binderproxy0 --handle 3 --code 1195461712 --arg hello --record

Flags:
`)
	flagSet.SetOutput(os.Stderr)
	flagSet.PrintDefaults()
}
