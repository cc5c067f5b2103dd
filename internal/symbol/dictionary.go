// Package symbol implements the append-only interned-string table backing
// Symbol columns: an ordered list of strings, a string→index map, and an
// on-disk side-file of one symbol per line.
package symbol

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// Dictionary is {symbols, index, file}. 0 is reserved as "unassigned";
// symbols[index[s]-1] == s is the core invariant.
type Dictionary struct {
	symbols []string
	index   map[string]uint64
	file    *os.File // nil when opened read-only (no writes expected)
}

// Open loads an existing side-file (if any) line by line and keeps the
// file handle open for appends. write controls whether Intern is allowed
// to append new symbols to disk.
func Open(path string, write bool) (*Dictionary, error) {
	d := &Dictionary{index: make(map[string]uint64)}

	if write {
		f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("symbol: could not open %s: %w", path, err)
		}
		d.file = f
	}

	existing, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return d, nil
		}
		return nil, fmt.Errorf("symbol: could not read %s: %w", path, err)
	}
	defer existing.Close()

	scanner := bufio.NewScanner(existing)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		d.addFromFile(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("symbol: could not scan %s: %w", path, err)
	}

	return d, nil
}

func (d *Dictionary) addFromFile(s string) {
	if _, ok := d.index[s]; ok {
		return
	}
	d.symbols = append(d.symbols, s)
	d.index[s] = uint64(len(d.symbols))
}

// Intern returns the 1-based index of s, inserting it (and, if the
// dictionary was opened for writing, appending it to the side-file) on
// first sight. Re-interning an existing symbol is idempotent.
func (d *Dictionary) Intern(s string) (uint64, error) {
	if idx, ok := d.index[s]; ok {
		return idx, nil
	}
	if strings.ContainsRune(s, '\n') {
		return 0, fmt.Errorf("symbol: value %q contains a newline", s)
	}

	if d.file != nil {
		var toWrite string
		if len(d.symbols) != 0 {
			toWrite = "\n" + s
		} else {
			toWrite = s
		}
		if _, err := d.file.WriteString(toWrite); err != nil {
			return 0, fmt.Errorf("symbol: could not append %q: %w", s, err)
		}
	}

	d.symbols = append(d.symbols, s)
	idx := uint64(len(d.symbols))
	d.index[s] = idx
	return idx, nil
}

// Resolve returns the string for a 1-based dictionary index. It panics on
// an out-of-range index, since that indicates on-disk corruption rather
// than a condition callers can recover from mid-scan.
func (d *Dictionary) Resolve(idx uint64) string {
	if idx == 0 || idx > uint64(len(d.symbols)) {
		panic(fmt.Sprintf("symbol: index %d out of range (have %d symbols)", idx, len(d.symbols)))
	}
	return d.symbols[idx-1]
}

// Len returns the number of interned symbols.
func (d *Dictionary) Len() int { return len(d.symbols) }

// Close closes the underlying side-file, if open for writing.
func (d *Dictionary) Close() error {
	if d.file == nil {
		return nil
	}
	return d.file.Close()
}
