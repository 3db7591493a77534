package main

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/danderson/borsh"
	"github.com/danderson/borsh/schema"
)

type indenter struct {
	prefix     string
	indentNext bool
}

func (i *indenter) s(msg string) {
	io.WriteString(i, msg+"\n")
}

func (i *indenter) f(msg string, args ...any) {
	fmt.Fprintf(i, msg+"\n", args...)
}

func (i *indenter) Write(bs []byte) (int, error) {
	ret := 0
	for len(bs) > 0 {
		if i.indentNext {
			i.indentNext = false
			_, err := io.WriteString(os.Stdout, i.prefix)
			if err != nil {
				return ret, err
			}
		}

		wr := bs
		idx := bytes.IndexByte(bs, '\n')
		if idx >= 0 {
			i.indentNext = true
			wr, bs = bs[:idx+1], bs[idx+1:]
		} else {
			bs = nil
		}

		n, err := os.Stdout.Write(wr)
		ret += n
		if err != nil {
			return ret, err
		}
	}
	return ret, nil
}

func (i *indenter) indent(n int) {
	i.prefix = strings.Repeat("  ", n)
	// The next write starts a fresh line with the new prefix.
	i.indentNext = true
}

// readContainer reads a borsh-encoded schema container from path.
func readContainer(path string) (schema.Container, error) {
	bs, err := os.ReadFile(path)
	if err != nil {
		return schema.Container{}, err
	}
	if globalArgs.Hex {
		if bs, err = hex.DecodeString(strings.TrimSpace(string(bs))); err != nil {
			return schema.Container{}, fmt.Errorf("reading %s: %w", path, err)
		}
	}
	var ret schema.Container
	if err := borsh.Unmarshal(bs, &ret); err != nil {
		return schema.Container{}, fmt.Errorf("reading schema %s: %w", path, err)
	}
	return ret, nil
}

// readInput reads the file named by args[0], or stdin if args is
// empty or "-". If isHex, the input is hex-decoded.
func readInput(args []string, isHex bool) ([]byte, error) {
	var (
		bs  []byte
		err error
	)
	if len(args) == 0 || args[0] == "-" {
		bs, err = io.ReadAll(os.Stdin)
	} else {
		bs, err = os.ReadFile(args[0])
	}
	if err != nil {
		return nil, err
	}
	if isHex {
		return hex.DecodeString(strings.Join(strings.Fields(string(bs)), ""))
	}
	return bs, nil
}
