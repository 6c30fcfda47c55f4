package log

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// ListFiles returns <prefix>-*.jsonl.zst files in dir in name order, which is
// also write order.
func ListFiles(dir, prefix string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ents))
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if strings.HasPrefix(name, prefix+"-") && strings.HasSuffix(name, ".jsonl.zst") {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	out := make([]string, 0, len(names))
	for _, name := range names {
		out = append(out, filepath.Join(dir, name))
	}
	return out, nil
}

// ReadTickLog streams every tick entry under dir to fn in write order.
// Numbers in event payloads are kept as json.Number so hashes recomputed
// from the log match the ones written.
func ReadTickLog(dir string, fn func(TickLogEntry) error) error {
	files, err := ListFiles(dir, "events")
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no events files found in %s", dir)
	}
	for _, path := range files {
		if err := readFile(path, fn); err != nil {
			return err
		}
	}
	return nil
}

func readFile(path string, fn func(TickLogEntry) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return err
	}
	defer dec.Close()

	sc := bufio.NewScanner(dec)
	sc.Buffer(make([]byte, 64*1024), 8*1024*1024)
	for sc.Scan() {
		jd := json.NewDecoder(bytes.NewReader(sc.Bytes()))
		jd.UseNumber()
		var entry TickLogEntry
		if err := jd.Decode(&entry); err != nil {
			return fmt.Errorf("%s: unmarshal: %w", filepath.Base(path), err)
		}
		if err := fn(entry); err != nil {
			return err
		}
	}
	return sc.Err()
}
