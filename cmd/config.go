package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"
	"unicode"

	benchCfg "kvbench/config"

	"github.com/spf13/cobra"
)

var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage kvbench configuration",
	Long:  "View and modify kvbench configuration settings",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		// a broken config file must not block init, reset or load-file
		if err := loadConfig(); err != nil {
			fmt.Println("Ignoring current config: ", err)
		}
		return nil
	},
}

func requireConfig() {
	if GConfig.benchConfig == nil {
		fmt.Println("Config not found, please run 'kvbench config init' first")
		os.Exit(1)
	}
}

var configSetCmd = &cobra.Command{
	Use:   "set field=value",
	Short: "Set a configuration field",
	Long:  "Set the value of a specific configuration field (e.g., config set key_sizes=64,128 or config set page_size=16)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireConfig()
		field, value, ok := strings.Cut(args[0], "=")
		if !ok {
			return fmt.Errorf("invalid format. Use: field=value")
		}
		if err := setConfigField(GConfig.benchConfig, field, value); err != nil {
			return err
		}

		// Validate the new configuration
		if err := benchCfg.ValidateConfig(GConfig.benchConfig); err != nil {
			return fmt.Errorf("invalid configuration: %w", err)
		}

		// Save the updated configuration
		return GConfig.benchConfig.WriteConfig(GConfig.GetConfigFilePath())
	},
}

func lookupField(cfg *benchCfg.BenchConfig, field string) (reflect.Value, error) {
	// Convert snake_case to camelCase for field lookup
	name := toCamelCase(field)

	configVal := reflect.ValueOf(cfg).Elem()
	fieldVal := configVal.FieldByNameFunc(func(s string) bool {
		return strings.EqualFold(s, name)
	})
	if !fieldVal.IsValid() {
		return reflect.Value{}, fmt.Errorf("field %s not found", field)
	}
	return fieldVal, nil
}

// setConfigField parses value according to the type of the field. Slices take
// comma separated values.
func setConfigField(cfg *benchCfg.BenchConfig, field, value string) error {
	fieldVal, err := lookupField(cfg, field)
	if err != nil {
		return err
	}

	// Handle time.Duration fields specially
	if fieldVal.Type() == reflect.TypeOf(benchCfg.Duration(0)) {
		duration, err := time.ParseDuration(value)
		if err != nil {
			return fmt.Errorf("invalid duration value for %s: %w", field, err)
		}
		fieldVal.Set(reflect.ValueOf(benchCfg.Duration(duration)))
		return nil
	}

	// Convert and set the value based on field type
	switch fieldVal.Kind() {
	case reflect.Int:
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", field, err)
		}
		fieldVal.SetInt(int64(v))
	case reflect.Bool:
		v, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid value for %s: %w", field, err)
		}
		fieldVal.SetBool(v)
	case reflect.String:
		fieldVal.SetString(value)
	case reflect.Slice:
		values := strings.Split(value, ",")
		slice := reflect.MakeSlice(fieldVal.Type(), len(values), len(values))
		for i, v := range values {
			v = strings.TrimSpace(v)
			switch fieldVal.Type().Elem().Kind() {
			case reflect.String:
				slice.Index(i).SetString(v)
			case reflect.Int:
				n, err := strconv.Atoi(v)
				if err != nil {
					return fmt.Errorf("invalid value for %s: %w", field, err)
				}
				slice.Index(i).SetInt(int64(n))
			default:
				return fmt.Errorf("unsupported slice type for field %s", field)
			}
		}
		fieldVal.Set(slice)
	default:
		return fmt.Errorf("unsupported type for field %s", field)
	}
	return nil
}

var configGetCmd = &cobra.Command{
	Use:   "get field",
	Short: "Get a configuration field value",
	Long:  "Get the current value of a specific configuration field",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		requireConfig()
		fieldVal, err := lookupField(GConfig.benchConfig, args[0])
		if err != nil {
			return err
		}

		// Print the field value
		fmt.Printf("%v\n", fieldVal.Interface())
		return nil
	},
}

var configLoadFileCmd = &cobra.Command{
	Use:   "load-file path/to/config.{json,yaml,toml}",
	Short: "Load configuration from file",
	Long:  "Load and replace current configuration with contents from specified JSON, YAML or TOML file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		newConfig, err := benchCfg.ReadConfig(args[0])
		if err != nil {
			return fmt.Errorf("failed to load config file: %w", err)
		}

		// Update global config
		GConfig.benchConfig = newConfig

		err = initConfigDir()
		if err != nil {
			return err
		}

		// Save the new configuration
		return GConfig.benchConfig.WriteConfig(GConfig.GetConfigFilePath())
	},
}

var configViewCmd = &cobra.Command{
	Use:   "view",
	Short: "View current configuration",
	Long:  "View the current configuration in JSON format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		requireConfig()
		data, err := json.MarshalIndent(GConfig.benchConfig, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		fmt.Println(string(data))
		return nil
	},
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all configuration fields",
	Long:  "List all available configuration fields with their types and current values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		requireConfig()
		configVal := reflect.ValueOf(GConfig.benchConfig).Elem()
		configType := configVal.Type()

		fmt.Printf("%-20s %-15s %-15s %s\n", "FIELD", "TYPE", "REQUIRED", "CURRENT VALUE")
		fmt.Println(strings.Repeat("-", 80))

		for i := 0; i < configVal.NumField(); i++ {
			fieldVal := configVal.Field(i)
			fieldType := configType.Field(i)

			// Get validation tags
			validateTag := fieldType.Tag.Get("validate")
			required := strings.HasPrefix(validateTag, "required")

			// Format the type string
			typeStr := fieldType.Type.String()
			if fieldVal.Kind() == reflect.Slice {
				typeStr = fmt.Sprintf("[]%s", fieldType.Type.Elem().String())
			}

			// Format the current value
			var valueStr string
			if fieldVal.Kind() == reflect.Slice {
				sliceVals := make([]string, fieldVal.Len())
				for j := 0; j < fieldVal.Len(); j++ {
					sliceVals[j] = fmt.Sprint(fieldVal.Index(j).Interface())
				}
				if len(sliceVals) == 0 {
					valueStr = "[]"
				} else {
					valueStr = strings.Join(sliceVals, ",")
				}
			} else {
				valueStr = fmt.Sprint(fieldVal.Interface())
			}

			fmt.Printf("%-20s %-15s %-15v %s\n",
				toSnakeCase(fieldType.Name),
				typeStr,
				required,
				valueStr)
		}
		return nil
	},
}

// toSnakeCase converts a camelCase string to snake_case, handling acronyms properly
func toSnakeCase(s string) string {
	var result strings.Builder
	var prev rune
	for i, r := range s {
		if i > 0 {
			// Check if current char is uppercase and previous char is lowercase
			// or if current char is uppercase and next char is lowercase
			if unicode.IsUpper(r) {
				if unicode.IsLower(prev) ||
					(i+1 < len(s) && unicode.IsLower(rune(s[i+1]))) {
					result.WriteRune('_')
				}
			}
		}
		result.WriteRune(unicode.ToLower(r))
		prev = r
	}
	return result.String()
}

// toCamelCase converts a snake_case string to camelCase, handling acronyms properly
func toCamelCase(s string) string {
	// Known acronyms that should be handled specially
	acronyms := map[string]bool{
		"id": true,
	}

	parts := strings.Split(s, "_")
	var result strings.Builder

	for i, part := range parts {
		if part == "" {
			continue
		}

		// Check if this part is a known acronym
		if i > 0 && acronyms[strings.ToLower(part)] {
			result.WriteString(strings.ToUpper(part))
			continue
		}

		// For normal words, capitalize first letter if not first word
		if i == 0 {
			result.WriteString(part)
		} else {
			result.WriteString(strings.ToUpper(part[0:1]) + part[1:])
		}
	}

	return result.String()
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize default configuration",
	Long:  "Initialize the configuration with default values and save it in the config directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if GConfig.benchConfig != nil {
			fmt.Println("Config already exists at", GConfig.GetConfigFilePath(), "use 'kvbench config reset' to overwrite it")
			return nil
		}
		err := initConfigDir()
		if err != nil {
			return err
		}
		return initConfigFile()
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset to default configuration",
	Long:  "Reset the configuration with default values and save it in the config directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		err := initConfigDir()
		if err != nil {
			return err
		}
		return initConfigFile()
	},
}

func init() {
	ConfigCmd.AddCommand(configInitCmd)
	ConfigCmd.AddCommand(configResetCmd)
	ConfigCmd.AddCommand(configSetCmd)
	ConfigCmd.AddCommand(configGetCmd)
	ConfigCmd.AddCommand(configLoadFileCmd)
	ConfigCmd.AddCommand(configViewCmd)
	ConfigCmd.AddCommand(configListCmd)
}

func initConfigDir() error {
	if GConfig.benchConfigFile != "" {
		// explicit config file, its directory is the user's business
		return nil
	}
	if _, err := os.Stat(GConfig.benchConfigPath); err != nil {
		if os.IsNotExist(err) {
			if err = os.MkdirAll(GConfig.benchConfigPath, 0755); err != nil {
				fmt.Println("Failed to create config directory: ", err)
				return err
			}
		} else {
			fmt.Println("Failed to check config directory: ", err)
			return err
		}
	}
	return nil
}

func initConfigFile() error {
	configFilePath := GConfig.GetConfigFilePath()
	defaultConfig := benchCfg.GetDefaultConfig()

	GConfig.benchConfig = defaultConfig
	err := defaultConfig.WriteConfig(configFilePath)
	if err != nil {
		fmt.Println("Failed to write default config file: ", err)
		return err
	}
	fmt.Println("Default configuration initialized and saved in ", configFilePath)
	return nil
}
