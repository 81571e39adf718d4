// Copyright 2024 The trigflow Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command trigdump prints the contents of a trigflow record file,
// decoding each known record type and leaving passthrough records as
// a byte count. Adapted from the teacher's perfdump.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/fribdaq/trigflow/record"
)

func main() {
	cmd := newRootCmd()
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var bufSize int

	cmd := &cobra.Command{
		Use:   "trigdump <file>",
		Short: "print the records in a trigflow record file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return dump(args[0], bufSize)
		},
	}
	cmd.Flags().IntVar(&bufSize, "buf-size", 1<<20, "reader buffer size, in bytes")
	return cmd
}

func dump(path string, bufSize int) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	r := record.NewBufferedReader(f, bufSize)
	index := 0
	for {
		block, err := r.Acquire(bufSize)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		off := 0
		for off < len(block.Bytes) {
			hdr, err := record.DecodeHeader(block.Bytes[off:])
			if err != nil {
				return err
			}
			body := block.Bytes[off+record.HeaderSize : off+int(hdr.Size)]
			printRecord(index, hdr, body)
			off += int(hdr.Size)
			index++
		}

		if err := r.Release(); err != nil {
			return err
		}
	}
}

func printRecord(index int, hdr record.Header, body []byte) {
	switch hdr.TypeCode {
	case record.TypeParameterDefs:
		defs, err := record.DecodeParameterDefs(body)
		if err != nil {
			fmt.Printf("%d: parameter-definitions: decode error: %v\n", index, err)
			return
		}
		fmt.Printf("%d: parameter-definitions (%d entries)\n", index, len(defs.Params))
		for _, d := range defs.Params {
			fmt.Printf("    id=%d name=%q\n", d.ID, d.Name)
		}
	case record.TypeVariableValues:
		vars, err := record.DecodeVariables(body)
		if err != nil {
			fmt.Printf("%d: variables: decode error: %v\n", index, err)
			return
		}
		fmt.Printf("%d: variables (%d entries)\n", index, len(vars.Vars))
		for _, v := range vars.Vars {
			fmt.Printf("    name=%q units=%q value=%v\n", v.Name, v.Units, v.Value)
		}
	case record.TypeParameterData:
		pd, err := record.DecodeParameterData(body)
		if err != nil {
			fmt.Printf("%d: parameter-data: decode error: %v\n", index, err)
			return
		}
		fmt.Printf("%d: parameter-data trigger=%d (%d assignments)\n", index, pd.Trigger, len(pd.Params))
	default:
		fmt.Printf("%d: passthrough type=%d size=%d\n", index, hdr.TypeCode, hdr.Size)
	}
}
