package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"kvbench/constants"

	"github.com/BurntSushi/toml"
	validator "github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// ErrInvalid marks an invalid benchmark parameter, e.g. a key size below the minimum.
var ErrInvalid = errors.New("invalid configuration")

type BenchConfig struct {
	Backend   string   `json:"backend" yaml:"backend" toml:"backend" validate:"required,valid_backend"`
	Endpoints []string `json:"endpoints" yaml:"endpoints" toml:"endpoints" validate:"required_if=Backend etcd,dive,valid_endpoint"`
	PoolID    string   `json:"pool_id" yaml:"pool_id" toml:"pool_id" validate:"required,excludesall=/"`
	ObjectID  string   `json:"object_id" yaml:"object_id" toml:"object_id" validate:"required,excludesall=/"`
	// Benchmark matrix
	KeySizes   []int    `json:"key_sizes" yaml:"key_sizes" toml:"key_sizes" validate:"required,min=1,dive,valid_key_size"`
	ValueSizes []int    `json:"value_sizes" yaml:"value_sizes" toml:"value_sizes" validate:"required,min=1,dive,gt=0"`
	NumOps     []int    `json:"num_ops" yaml:"num_ops" toml:"num_ops" validate:"required,min=1,dive,gt=0"`
	Operations []string `json:"operations" yaml:"operations" toml:"operations" validate:"required,min=1,unique,dive,valid_operation"`
	// Benchmark framework parameters
	PageSize    int      `json:"page_size" yaml:"page_size" toml:"page_size" validate:"required,gt=0"`
	Iterations  int      `json:"iterations" yaml:"iterations" toml:"iterations" validate:"required,gt=0"`
	TimeUnit    string   `json:"time_unit" yaml:"time_unit" toml:"time_unit" validate:"required,valid_time_unit"`
	Filter      string   `json:"filter" yaml:"filter" toml:"filter" validate:"omitempty,valid_filter"`
	Verify      bool     `json:"verify" yaml:"verify" toml:"verify"`
	DialTimeout Duration `json:"dial_timeout" yaml:"dial_timeout" toml:"dial_timeout" validate:"required"`
	// Output parameters
	ResultsFile      string `json:"results_file" yaml:"results_file" toml:"results_file" validate:"required,filepath"`
	ResultsBatchSize int    `json:"results_batch_size" yaml:"results_batch_size" toml:"results_batch_size" validate:"required,gt=0"`
	LogFile          string `json:"log_file" yaml:"log_file" toml:"log_file" validate:"omitempty,filepath"`
}

// Custom validation tags
const (
	backendTag   = "valid_backend"
	endpointTag  = "valid_endpoint"
	keySizeTag   = "valid_key_size"
	operationTag = "valid_operation"
	timeUnitTag  = "valid_time_unit"
	filterTag    = "valid_filter"
)

// RegisterCustomValidators registers all custom validators for BenchConfig
func RegisterCustomValidators(v *validator.Validate) error {
	validators := map[string]validator.Func{
		backendTag:   validateBackend,
		endpointTag:  validateEndpoint,
		keySizeTag:   validateKeySize,
		operationTag: validateOperation,
		timeUnitTag:  validateTimeUnit,
		filterTag:    validateFilter,
	}
	for tag, fn := range validators {
		if err := v.RegisterValidation(tag, fn); err != nil {
			return fmt.Errorf("failed to register %s validator: %w", tag, err)
		}
	}
	return nil
}

func validateKeySize(fl validator.FieldLevel) bool {
	keySize := fl.Field().Int()
	return keySize >= int64(constants.MIN_KEY_SIZE)
}

func validateBackend(fl validator.FieldLevel) bool {
	backend := fl.Field().String()
	return backend == constants.BACKEND_MEMORY || backend == constants.BACKEND_ETCD
}

// validateOperation ensures the operation is one of the benchmarked operations
func validateOperation(fl validator.FieldLevel) bool {
	return slices.Contains(constants.ALL_OPERATIONS, fl.Field().String())
}

func validateTimeUnit(fl validator.FieldLevel) bool {
	_, ok := TimeUnits[fl.Field().String()]
	return ok
}

func validateFilter(fl validator.FieldLevel) bool {
	_, err := regexp.Compile(fl.Field().String())
	return err == nil
}

// validateEndpoint ensures the endpoint string is in the correct format
func validateEndpoint(fl validator.FieldLevel) bool {
	endpoint := fl.Field().String()

	// Strip protocol if present
	if strings.HasPrefix(endpoint, "http://") {
		endpoint = endpoint[7:]
	} else if strings.HasPrefix(endpoint, "https://") {
		endpoint = endpoint[8:]
	}

	// Split host and port
	host, port, err := net.SplitHostPort(endpoint)
	if err != nil {
		return false
	}

	// Validate port
	portNum, err := strconv.Atoi(port)
	if err != nil || portNum < 1 || portNum > 65535 {
		return false
	}

	if host == "localhost" {
		return true
	}
	return net.ParseIP(host) != nil
}

// TimeUnits maps the accepted report units to their duration.
var TimeUnits = map[string]time.Duration{
	constants.TIME_UNIT_NS: time.Nanosecond,
	constants.TIME_UNIT_US: time.Microsecond,
	constants.TIME_UNIT_MS: time.Millisecond,
	constants.TIME_UNIT_S:  time.Second,
}

func GetDefaultConfig() *BenchConfig {
	return &BenchConfig{
		Backend:          constants.BACKEND_MEMORY,
		Endpoints:        []string{"127.0.0.1:2379"},
		PoolID:           constants.DEFAULT_POOL_ID,
		ObjectID:         constants.DEFAULT_OBJECT_ID,
		KeySizes:         slices.Clone(constants.DEFAULT_KEY_SIZES),
		ValueSizes:       slices.Clone(constants.DEFAULT_VALUE_SIZES),
		NumOps:           slices.Clone(constants.DEFAULT_NUM_OPS),
		Operations:       slices.Clone(constants.ALL_OPERATIONS),
		PageSize:         constants.DEFAULT_PAGE_SIZE,
		Iterations:       constants.DEFAULT_ITERATIONS,
		TimeUnit:         constants.TIME_UNIT_MS,
		Verify:           true,
		DialTimeout:      Duration(5 * time.Second),
		ResultsFile:      constants.DEFAULT_RESULTS_FILE,
		ResultsBatchSize: constants.DEFAULT_RESULTS_BATCH_SIZE,
		LogFile:          constants.DEFAULT_LOG_FILE,
	}
}

func ValidateConfig(config *BenchConfig) error {
	v := validator.New()
	if err := RegisterCustomValidators(v); err != nil {
		return fmt.Errorf("failed to register custom validators: %w", err)
	}

	if err := v.Struct(config); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalid, err)
	}
	return nil
}

// ReadConfig loads and validates a config file. The format is picked by the
// file extension: .json, .yaml/.yml or .toml.
func ReadConfig(path string) (*BenchConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	benchConfig := &BenchConfig{}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".json":
		err = json.Unmarshal(data, benchConfig)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, benchConfig)
	case ".toml":
		_, err = toml.Decode(string(data), benchConfig)
	default:
		err = fmt.Errorf("unsupported config format: %s", ext)
	}
	if err != nil {
		return nil, err
	}
	err = ValidateConfig(benchConfig)
	if err != nil {
		return nil, err
	}
	return benchConfig, nil
}

// WriteConfig saves the config in the format given by the file extension, JSON by default.
func (cfg *BenchConfig) WriteConfig(path string) error {
	var (
		data []byte
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(cfg)
	case ".toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(cfg)
		data = buf.Bytes()
	default:
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}
