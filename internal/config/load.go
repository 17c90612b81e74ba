package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/imamik/boringsvc/internal/util/ptr"
)

var (
	// ErrConfigNotFound is returned when the configuration file does not exist.
	ErrConfigNotFound = errors.New("config file not found")

	// ErrEnvironmentNotFound is returned when the file has no such environment.
	ErrEnvironmentNotFound = errors.New("environment not found in config")

	// ErrInvalidConfig wraps every decoding and validation failure.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// LoadFile reads path, selects environment and returns the decoded,
// defaulted and validated environment.
func LoadFile(path, environment string) (*Environment, error) {
	// #nosec G304
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrConfigNotFound, path)
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	return Parse(data, environment)
}

// Parse decodes raw YAML and returns the named environment.
func Parse(data []byte, environment string) (*Environment, error) {
	var rawConfig map[string]interface{}
	if err := yaml.Unmarshal(data, &rawConfig); err != nil {
		return nil, fmt.Errorf("%w: failed to unmarshal yaml: %w", ErrInvalidConfig, err)
	}

	rawEnv, ok := rawConfig[environment]
	if !ok || rawEnv == nil {
		return nil, fmt.Errorf("%w: %q (available: %s)", ErrEnvironmentNotFound, environment,
			strings.Join(environmentNames(rawConfig), ", "))
	}

	env, err := decodeEnvironment(rawEnv)
	if err != nil {
		return nil, err
	}
	env.Name = environment

	applyDefaults(env)

	if err := env.Validate(); err != nil {
		return nil, err
	}

	return env, nil
}

func decodeEnvironment(raw interface{}) (*Environment, error) {
	var env Environment
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			hostTargetHook,
			backendHook,
		),
		WeaklyTypedInput: true,
		Result:           &env,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("%w: failed to decode config: %w", ErrInvalidConfig, err)
	}
	return &env, nil
}

var (
	hostTargetType = reflect.TypeOf(HostTarget{})
	backendType    = reflect.TypeOf(Backend{})
)

// hostTargetHook lets a host be written as a bare string, optionally
// prefixed with "user@".
func hostTargetHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || (to != hostTargetType && to != reflect.PointerTo(hostTargetType)) {
		return data, nil
	}
	value := strings.TrimSpace(data.(string))
	if user, host, ok := strings.Cut(value, "@"); ok {
		return map[string]interface{}{"user": user, "host": host}, nil
	}
	return map[string]interface{}{"host": value}, nil
}

// backendHook accepts "host" and "host:port" strings for backends.
func backendHook(from, to reflect.Type, data interface{}) (interface{}, error) {
	if from.Kind() != reflect.String || to != backendType {
		return data, nil
	}

	value := strings.TrimSpace(data.(string))
	host, portStr, err := net.SplitHostPort(value)
	if err != nil {
		return map[string]interface{}{"host": value}, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("invalid backend port in %q", value)
	}
	return map[string]interface{}{"host": host, "port": port}, nil
}

func applyDefaults(env *Environment) {
	if env.User == "" {
		env.User = DefaultUser
	}
	if env.SSHKey == "" {
		env.SSHKey = DefaultSSHKey
	}
	if env.SSHPort == 0 {
		env.SSHPort = DefaultSSHPort
	}
	if len(env.SSHAuthMethods) == 0 {
		env.SSHAuthMethods = []string{AuthPublicKey}
	}
	for i, m := range env.SSHAuthMethods {
		env.SSHAuthMethods[i] = strings.ToLower(strings.TrimSpace(m))
	}
	if env.ForwardAgent == nil {
		env.ForwardAgent = ptr.Bool(true)
	}
	if env.UseSSHAgent == nil {
		env.UseSSHAgent = ptr.Bool(false)
	}
	if env.Secrets == nil {
		env.Secrets = map[string]string{}
	}

	for i := range env.Services {
		svc := &env.Services[i]
		if svc.Enabled == nil {
			svc.Enabled = ptr.Bool(true)
		}
		for j := range svc.Backends {
			if svc.Backends[j].Port == 0 {
				svc.Backends[j].Port = DefaultBackendPort
			}
		}
		if svc.CustomParams == nil {
			svc.CustomParams = map[string]any{}
		}
	}
}

func environmentNames(raw map[string]interface{}) []string {
	names := make([]string, 0, len(raw))
	for name := range raw {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
