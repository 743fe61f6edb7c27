// Description: This package derives the keys and values written by the benchmarks.
// Keys are fixed width: filler bytes followed by a zero-padded decimal key number,
// so every key number maps to exactly one key and keys sort in key number order.
package generator

import (
	"bytes"
	"fmt"
	"strconv"

	"kvbench/config"
	"kvbench/constants"
)

// maxIndex is the first key number that no longer fits in INDEX_WIDTH digits.
const maxIndex int64 = 10_000_000_000_000_000

// GenerateKey creates the key for key number index with a total length of keySize bytes.
func GenerateKey(index int, keySize int) ([]byte, error) {
	if err := checkKeySize(keySize); err != nil {
		return nil, err
	}
	key := make([]byte, keySize)
	if err := fillKey(key, index); err != nil {
		return nil, err
	}
	return key, nil
}

// GenerateValue creates a value of valueSize filler bytes.
func GenerateValue(valueSize int) ([]byte, error) {
	if valueSize < 1 {
		return nil, fmt.Errorf("%w: value size %d must be positive", config.ErrInvalid, valueSize)
	}
	return bytes.Repeat([]byte{constants.VALUE_FILLER}, valueSize), nil
}

func checkKeySize(keySize int) error {
	if keySize < constants.MIN_KEY_SIZE {
		return fmt.Errorf("%w: key size %d is less than minimum required size %d", config.ErrInvalid, keySize, constants.MIN_KEY_SIZE)
	}
	return nil
}

func fillKey(key []byte, index int) error {
	if index < 0 || int64(index) >= maxIndex {
		return fmt.Errorf("%w: key number %d does not fit in %d digits", config.ErrInvalid, index, constants.INDEX_WIDTH)
	}
	for i := range key {
		key[i] = constants.KEY_FILLER
	}
	suffix := key[len(key)-constants.INDEX_WIDTH:]
	for i := range suffix {
		suffix[i] = '0'
	}
	digits := strconv.AppendInt(make([]byte, 0, constants.INDEX_WIDTH), int64(index), 10)
	copy(suffix[len(suffix)-len(digits):], digits)
	return nil
}

// ParseIndex recovers the key number from a key made by GenerateKey with the same keySize.
func ParseIndex(key []byte, keySize int) (int, error) {
	if err := checkKeySize(keySize); err != nil {
		return 0, err
	}
	if len(key) != keySize {
		return 0, fmt.Errorf("key has %d bytes, expected %d", len(key), keySize)
	}
	split := keySize - constants.INDEX_WIDTH
	for i, b := range key[:split] {
		if b != constants.KEY_FILLER {
			return 0, fmt.Errorf("unexpected byte %q at offset %d", b, i)
		}
	}
	for _, b := range key[split:] {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("key number %q is not decimal", key[split:])
		}
	}
	index, err := strconv.ParseInt(string(key[split:]), 10, 64)
	if err != nil {
		return 0, err
	}
	return int(index), nil
}

// Generator hands out keys and values for one benchmark configuration.
// Sizes are validated once on creation.
type Generator struct {
	keySize int
	value   []byte
}

func NewGenerator(keySize int, valueSize int) (*Generator, error) {
	if err := checkKeySize(keySize); err != nil {
		return nil, err
	}
	value, err := GenerateValue(valueSize)
	if err != nil {
		return nil, err
	}
	return &Generator{keySize: keySize, value: value}, nil
}

// Key returns a newly allocated key for key number index.
func (g *Generator) Key(index int) ([]byte, error) {
	key := make([]byte, g.keySize)
	if err := fillKey(key, index); err != nil {
		return nil, err
	}
	return key, nil
}

// Value returns the value shared by every key of the run. Callers must not modify it.
func (g *Generator) Value() []byte {
	return g.value
}

func (g *Generator) KeySize() int {
	return g.keySize
}

func (g *Generator) ValueSize() int {
	return len(g.value)
}
