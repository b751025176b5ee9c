package rpc

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"sync"
)

// ServeStdio reads one JSON object per newline-terminated line from r and
// writes one response per line to w. Each request spawns its own handler
// goroutine so a long-running tool call never blocks a short one;
// responses are therefore emitted in arrival order of handler completion,
// not necessarily request order — clients match by id.
func ServeStdio(ctx context.Context, reg *Registry, r io.Reader, w io.Writer) error {
	var writeMu sync.Mutex
	var wg sync.WaitGroup

	writeLine := func(v interface{}) {
		data, err := json.Marshal(v)
		if err != nil {
			return
		}
		writeMu.Lock()
		defer writeMu.Unlock()
		_, _ = w.Write(data)
		_, _ = w.Write([]byte("\n"))
	}

	err := ServeLines(r, func(line []byte) {
		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			writeLine(errorResponse(nil, NewError(CodeParseError, "parse error", nil)))
			return
		}
		reqCopy := req
		wg.Add(1)
		go func() {
			defer wg.Done()
			resp := reg.Dispatch(ctx, &reqCopy)
			if resp != nil {
				writeLine(resp)
			}
		}()
	})
	wg.Wait()

	if err != nil {
		log.Println("rpc: stdio read error:", err)
		return err
	}
	return nil
}

// ServeLines scans r for newline-terminated, non-empty lines and invokes fn
// for each one. Shared by ServeStdio and Bridge.ReadLoop, both of which read
// a newline-framed stream but differ in what they do with each line.
func ServeLines(r io.Reader, fn func(line []byte)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		fn(line)
	}
	return scanner.Err()
}
