package objio

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/kwv/fourpcs/registration"
)

// ReadMatrix reads a POLYWORKS-convention transform: 16 whitespace- or
// newline-separated numbers, row-major.
func ReadMatrix(path string) (registration.Mat4, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return registration.Mat4{}, fmt.Errorf("objio: reading %s: %w", path, err)
	}
	fields := strings.Fields(string(data))
	if len(fields) != 16 {
		return registration.Mat4{}, fmt.Errorf("objio: %s: expected 16 numbers, got %d", path, len(fields))
	}

	var m registration.Mat4
	for i := 0; i < 4; i++ {
		for j := 0; j < 4; j++ {
			v, err := strconv.ParseFloat(fields[4*i+j], 64)
			if err != nil {
				return registration.Mat4{}, fmt.Errorf("objio: %s: parsing entry %d: %w", path, 4*i+j, err)
			}
			m[i][j] = v
		}
	}
	return m, nil
}

// WriteMatrix writes m in the POLYWORKS convention: 4 rows of 4
// whitespace-separated numbers.
func WriteMatrix(path string, m registration.Mat4) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("objio: creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for i := 0; i < 4; i++ {
		fmt.Fprintf(w, "%g %g %g %g\n", m[i][0], m[i][1], m[i][2], m[i][3])
	}
	if err := w.Flush(); err != nil {
		return fmt.Errorf("objio: writing %s: %w", path, err)
	}
	return nil
}
