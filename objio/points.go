// Package objio reads and writes the file conventions named by this
// engine's external interfaces: OBJ-like point files and POLYWORKS-style
// 4x4 transform matrices. No parser library in the retrieved corpus targets
// these whitespace-separated numeric line formats, so this package is
// stdlib-only (see DESIGN.md).
package objio

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kwv/fourpcs/registration"
)

// ReadPoints reads an OBJ-like point file: "v x y z" lines for positions,
// optional "vn nx ny nz" lines applying to the preceding vertex, and
// optional trailing "r g b" integer channels on the "v" line.
func ReadPoints(path string) (registration.Cloud, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("objio: opening %s: %w", path, err)
	}
	defer f.Close()

	var cloud registration.Cloud
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		switch fields[0] {
		case "v":
			p, err := parseVertex(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("objio: %s:%d: %w", path, lineNo, err)
			}
			cloud = append(cloud, p)
		case "vn":
			if len(cloud) == 0 {
				return nil, fmt.Errorf("objio: %s:%d: vn with no preceding vertex", path, lineNo)
			}
			n, err := parseVec3(fields[1:])
			if err != nil {
				return nil, fmt.Errorf("objio: %s:%d: %w", path, lineNo, err)
			}
			cloud[len(cloud)-1].Normal = &n
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("objio: reading %s: %w", path, err)
	}
	return cloud, nil
}

func parseVertex(fields []string) (registration.Point, error) {
	if len(fields) < 3 {
		return registration.Point{}, fmt.Errorf("vertex needs at least 3 fields, got %d", len(fields))
	}
	pos, err := parseVec3(fields[:3])
	if err != nil {
		return registration.Point{}, err
	}
	p := registration.Point{Pos: pos}
	if len(fields) >= 6 {
		col, err := parseColor(fields[3:6])
		if err != nil {
			return registration.Point{}, err
		}
		p.Color = &col
	}
	return p, nil
}

func parseVec3(fields []string) (registration.Vec3, error) {
	var v registration.Vec3
	for i := 0; i < 3; i++ {
		f, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return v, fmt.Errorf("parsing float %q: %w", fields[i], err)
		}
		v[i] = f
	}
	return v, nil
}

func parseColor(fields []string) ([3]int32, error) {
	var c [3]int32
	for i := 0; i < 3; i++ {
		n, err := strconv.ParseInt(fields[i], 10, 32)
		if err != nil {
			return c, fmt.Errorf("parsing colour channel %q: %w", fields[i], err)
		}
		c[i] = int32(n)
	}
	return c, nil
}

// WritePoints writes cloud in the ReadPoints format.
func WritePoints(path string, cloud registration.Cloud) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("objio: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, p := range cloud {
		if p.Color != nil {
			fmt.Fprintf(w, "v %g %g %g %d %d %d\n", p.Pos[0], p.Pos[1], p.Pos[2], p.Color[0], p.Color[1], p.Color[2])
		} else {
			fmt.Fprintf(w, "v %g %g %g\n", p.Pos[0], p.Pos[1], p.Pos[2])
		}
		if p.Normal != nil {
			n := p.Normal
			fmt.Fprintf(w, "vn %g %g %g\n", n[0], n[1], n[2])
		}
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("objio: writing %s: %w", path, err)
	}
	return nil
}
