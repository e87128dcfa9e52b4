package main

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
)

type opKind int

const (
	opAlloc opKind = iota
	opFree
	opDump
)

// scriptOp is one parsed replay line.
type scriptOp struct {
	kind  opKind
	line  int
	name  string
	size  uint32
	align uint32
}

// parseScript reads a replay script:
//
//	alloc <name> <size> [align]   size accepts units, e.g. 4KiB
//	free <name>
//	dump
//
// Blank lines and text after '#' are ignored.
func parseScript(r io.Reader) ([]scriptOp, error) {
	var ops []scriptOp
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}

		op, err := parseLine(fields)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		op.line = line
		ops = append(ops, op)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ops, nil
}

func parseLine(fields []string) (scriptOp, error) {
	switch fields[0] {
	case "alloc":
		if len(fields) < 3 || len(fields) > 4 {
			return scriptOp{}, fmt.Errorf("usage: alloc <name> <size> [align]")
		}
		size, err := parseSize(fields[2])
		if err != nil {
			return scriptOp{}, err
		}
		if size < 8 {
			return scriptOp{}, fmt.Errorf("size %d below minimum 8", size)
		}
		align := uint32(1)
		if len(fields) == 4 {
			if align, err = parseSize(fields[3]); err != nil {
				return scriptOp{}, err
			}
			if align == 0 || align&(align-1) != 0 {
				return scriptOp{}, fmt.Errorf("alignment %d is not a power of two", align)
			}
		}
		return scriptOp{kind: opAlloc, name: fields[1], size: size, align: align}, nil

	case "free":
		if len(fields) != 2 {
			return scriptOp{}, fmt.Errorf("usage: free <name>")
		}
		return scriptOp{kind: opFree, name: fields[1]}, nil

	case "dump":
		if len(fields) != 1 {
			return scriptOp{}, fmt.Errorf("usage: dump")
		}
		return scriptOp{kind: opDump}, nil
	}
	return scriptOp{}, fmt.Errorf("unknown command %q", fields[0])
}

// parseSize accepts plain byte counts and humanized sizes ("64KiB", "1MB").
func parseSize(s string) (uint32, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n > math.MaxUint32 {
		return 0, fmt.Errorf("size %q exceeds %d bytes", s, uint64(math.MaxUint32))
	}
	return uint32(n), nil
}
