package generator

import (
	"bytes"
	"errors"
	"fmt"
	"math/rand"
	"testing"

	"kvbench/config"
	"kvbench/constants"
)

func TestGenerateKeyLayout(t *testing.T) {
	testCases := []struct {
		name    string
		index   int
		keySize int
	}{
		{"Minimum key size", 0, 16},
		{"Minimum key size, large index", 9_999_999_999_999_999, 16},
		{"Small key", 42, 64},
		{"Medium key", 123456, 256},
		{"Large key", 999_999, 1024},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key, err := GenerateKey(tc.index, tc.keySize)
			if err != nil {
				t.Fatalf("GenerateKey() error = %v", err)
			}
			if len(key) != tc.keySize {
				t.Fatalf("Wrong key size: got %d, want %d", len(key), tc.keySize)
			}

			prefix := key[:tc.keySize-constants.INDEX_WIDTH]
			if want := bytes.Repeat([]byte{constants.KEY_FILLER}, len(prefix)); !bytes.Equal(prefix, want) {
				t.Errorf("Wrong key prefix: got %q", prefix)
			}

			suffix := string(key[tc.keySize-constants.INDEX_WIDTH:])
			if want := fmt.Sprintf("%016d", tc.index); suffix != want {
				t.Errorf("Wrong key suffix: got %q, want %q", suffix, want)
			}
		})
	}
}

func TestGenerateKeyUniqueness(t *testing.T) {
	for _, keySize := range []int{16, 64, 128} {
		seen := make(map[string]int)
		for i := 0; i < 10000; i++ {
			key, err := GenerateKey(i, keySize)
			if err != nil {
				t.Fatalf("GenerateKey() error = %v", err)
			}
			if prev, ok := seen[string(key)]; ok {
				t.Fatalf("Key collision for size %d: indices %d and %d", keySize, prev, i)
			}
			seen[string(key)] = i
		}
	}
}

func TestGenerateKeyDeterminism(t *testing.T) {
	rg := rand.New(rand.NewSource(42))
	for n := 0; n < 1000; n++ {
		index := rg.Intn(1_000_000_000)
		keySize := constants.MIN_KEY_SIZE + rg.Intn(512)

		key1, err := GenerateKey(index, keySize)
		if err != nil {
			t.Fatalf("GenerateKey() error = %v", err)
		}
		// Generate an unrelated key in between to catch hidden state.
		if _, err := GenerateKey(index+1, keySize+1); err != nil {
			t.Fatalf("GenerateKey() error = %v", err)
		}
		key2, err := GenerateKey(index, keySize)
		if err != nil {
			t.Fatalf("GenerateKey() error = %v", err)
		}
		if !bytes.Equal(key1, key2) {
			t.Fatalf("Different keys for index %d and size %d: %q and %q", index, keySize, key1, key2)
		}
	}
}

func TestGenerateKeyInvalid(t *testing.T) {
	tests := []struct {
		name    string
		index   int
		keySize int
	}{
		{"key size too small", 0, constants.MIN_KEY_SIZE - 1},
		{"zero key size", 0, 0},
		{"negative index", -1, 64},
		{"index too large", 10_000_000_000_000_000, 64},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := GenerateKey(tt.index, tt.keySize)
			if !errors.Is(err, config.ErrInvalid) {
				t.Errorf("GenerateKey() error = %v, want %v", err, config.ErrInvalid)
			}
		})
	}
}

func TestGenerateValue(t *testing.T) {
	value, err := GenerateValue(8)
	if err != nil {
		t.Fatalf("GenerateValue() error = %v", err)
	}
	if !bytes.Equal(value, []byte("zzzzzzzz")) {
		t.Errorf("Wrong value: got %q", value)
	}
	if constants.VALUE_FILLER == constants.KEY_FILLER {
		t.Error("Key and value fillers must differ")
	}

	if _, err := GenerateValue(0); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("GenerateValue(0) error = %v, want %v", err, config.ErrInvalid)
	}
}

func TestGenerator(t *testing.T) {
	g, err := NewGenerator(16, 8)
	if err != nil {
		t.Fatalf("NewGenerator() error = %v", err)
	}
	if g.KeySize() != 16 || g.ValueSize() != 8 {
		t.Fatalf("Wrong sizes: got %d/%d", g.KeySize(), g.ValueSize())
	}

	want := []string{"0000000000000000", "0000000000000001", "0000000000000002"}
	for i, w := range want {
		key, err := g.Key(i)
		if err != nil {
			t.Fatalf("Key() error = %v", err)
		}
		if string(key) != w {
			t.Errorf("Key(%d) = %q, want %q", i, key, w)
		}
	}

	if _, err := NewGenerator(15, 8); !errors.Is(err, config.ErrInvalid) {
		t.Errorf("NewGenerator(15, 8) error = %v, want %v", err, config.ErrInvalid)
	}
}

func TestParseIndex(t *testing.T) {
	for _, index := range []int{0, 1, 42, 9_999_999_999_999_999} {
		key, err := GenerateKey(index, 32)
		if err != nil {
			t.Fatalf("GenerateKey() error = %v", err)
		}
		got, err := ParseIndex(key, 32)
		if err != nil {
			t.Fatalf("ParseIndex() error = %v", err)
		}
		if got != index {
			t.Errorf("ParseIndex() = %d, want %d", got, index)
		}
	}

	invalid := map[string][]byte{
		"wrong length":   []byte("0000000000000001"),
		"wrong filler":   []byte("yyyyyyyyyyyyyyyy0000000000000001"),
		"not a number":   []byte("xxxxxxxxxxxxxxxx00000000000000a1"),
		"negative index": []byte("xxxxxxxxxxxxxxxx-000000000000001"),
	}
	for name, key := range invalid {
		if _, err := ParseIndex(key, 32); err == nil {
			t.Errorf("ParseIndex() with %s expected error", name)
		}
	}
}
