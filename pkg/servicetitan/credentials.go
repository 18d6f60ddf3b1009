package servicetitan

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/fivetwenty-io/servicetitan-client/internal/constants"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// Credentials is the resolved, validated credential bundle. It is created
// once by ResolveCredentials (or by hand in tests) and shared by reference
// across every client component; nothing mutates it after creation.
type Credentials struct {
	AppKey       string      `json:"SERVICETITAN_APP_KEY"         validate:"required"`
	TenantID     string      `json:"SERVICETITAN_TENANT_ID"       validate:"required"`
	ClientID     string      `json:"SERVICETITAN_CLIENT_ID"       validate:"required"`
	ClientSecret string      `json:"SERVICETITAN_CLIENT_SECRET"   validate:"required"`
	AppID        string      `json:"SERVICETITAN_APP_ID"`
	Timezone     string      `json:"SERVICETITAN_TIMEZONE"`
	Environment  Environment `json:"SERVICETITAN_API_ENVIRONMENT" validate:"oneof=production integration"`
	AuthRoot     string      `json:"auth_root"                    validate:"required"`
	APIRoot      string      `json:"api_root"                     validate:"required"`
}

// String hides the app key and client secret.
func (c *Credentials) String() string {
	if c == nil {
		return "Credentials<nil>"
	}

	return fmt.Sprintf("Credentials{tenant=%s client=%s environment=%s app_key=%s client_secret=%s}",
		c.TenantID, c.ClientID, c.Environment, constants.MaskedSecret, constants.MaskedSecret)
}

// GoString hides secrets from %#v as well.
func (c *Credentials) GoString() string {
	return c.String()
}

// Location loads the configured timezone, defaulting to UTC.
func (c *Credentials) Location() (*time.Location, error) {
	return LoadTimezone(c.Timezone)
}

// ResolveOptions are the inputs to ResolveCredentials. Explicit fields win,
// then ConfigFile, then the environment for anything still missing.
type ResolveOptions struct {
	ConfigFile string

	AppKey       string
	TenantID     string
	ClientID     string
	ClientSecret string
	AppID        string
	Timezone     string
	Environment  string

	// AuthRoot and APIRoot override the environment's hosts.
	AuthRoot string
	APIRoot  string

	// Environ replaces the process environment when non-nil.
	Environ map[string]string
}

// environmentCredentials is the environment-variable view of the bundle.
type environmentCredentials struct {
	AppKey       string `env:"SERVICETITAN_APP_KEY"`
	TenantID     string `env:"SERVICETITAN_TENANT_ID"`
	ClientID     string `env:"SERVICETITAN_CLIENT_ID"`
	ClientSecret string `env:"SERVICETITAN_CLIENT_SECRET"`
	AppID        string `env:"SERVICETITAN_APP_ID"`
	Timezone     string `env:"SERVICETITAN_TIMEZONE"`
	Environment  string `env:"SERVICETITAN_API_ENVIRONMENT"`
}

// ResolveCredentials builds a Credentials bundle from explicit values, an
// optional JSON config file, and the environment. The environment is only
// consulted while a required field is still unset.
func ResolveCredentials(opts ResolveOptions) (*Credentials, error) {
	creds := &Credentials{
		AppKey:       opts.AppKey,
		TenantID:     opts.TenantID,
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		AppID:        opts.AppID,
		Timezone:     opts.Timezone,
		AuthRoot:     opts.AuthRoot,
		APIRoot:      opts.APIRoot,
	}
	environment := opts.Environment

	if opts.ConfigFile != "" {
		file, err := loadCredentialFile(opts.ConfigFile)
		if err != nil {
			return nil, err
		}

		creds.fill(file.credentials())

		if environment == "" {
			environment = file.Environment
		}
	}

	if creds.missingRequired() {
		var fromEnv environmentCredentials

		err := env.ParseWithOptions(&fromEnv, env.Options{Environment: opts.Environ})
		if err != nil {
			return nil, &ConfigError{Op: "reading environment", Err: err}
		}

		creds.fill(&Credentials{
			AppKey:       fromEnv.AppKey,
			TenantID:     fromEnv.TenantID,
			ClientID:     fromEnv.ClientID,
			ClientSecret: fromEnv.ClientSecret,
			AppID:        fromEnv.AppID,
			Timezone:     fromEnv.Timezone,
		})

		if environment == "" {
			environment = fromEnv.Environment
		}
	}

	parsed, err := ParseEnvironment(environment)
	if err != nil {
		return nil, err
	}

	creds.Environment = parsed

	if creds.Timezone == "" {
		creds.Timezone = constants.DefaultTimezone
	}

	if creds.AuthRoot == "" {
		creds.AuthRoot = parsed.AuthRoot()
	}

	if creds.APIRoot == "" {
		creds.APIRoot = parsed.APIRoot()
	}

	err = creds.Validate()
	if err != nil {
		return nil, err
	}

	return creds, nil
}

// Validate checks that the required fields are present and non-blank, the
// environment is known, and the timezone loads.
func (c *Credentials) Validate() error {
	err := credentialValidator.Struct(c)
	if err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return &ConfigError{Op: "validating credentials", Err: err}
		}

		var missing []string

		for _, fieldErr := range fieldErrs {
			if fieldErr.Tag() == "oneof" {
				return &ConfigError{Op: "validating credentials", Fields: []string{string(c.Environment)}, Err: ErrUnknownEnvironment}
			}

			missing = append(missing, fieldErr.Field())
		}

		return &ConfigError{Op: "validating credentials", Fields: missing, Err: ErrMissingCredentials}
	}

	var blank []string

	for _, field := range []struct{ name, value string }{
		{constants.EnvAppKey, c.AppKey},
		{constants.EnvTenantID, c.TenantID},
		{constants.EnvClientID, c.ClientID},
		{constants.EnvClientSecret, c.ClientSecret},
	} {
		if strings.TrimSpace(field.value) == "" {
			blank = append(blank, field.name)
		}
	}

	if len(blank) > 0 {
		return &ConfigError{Op: "validating credentials", Fields: blank, Err: ErrEmptyCredentials}
	}

	_, err = LoadTimezone(c.Timezone)
	if err != nil {
		return &ConfigError{Op: "validating credentials", Fields: []string{c.Timezone}, Err: ErrInvalidTimezone}
	}

	return nil
}

func (c *Credentials) missingRequired() bool {
	return c.AppKey == "" || c.TenantID == "" || c.ClientID == "" || c.ClientSecret == ""
}

// fill copies values from other into fields that are still empty.
func (c *Credentials) fill(other *Credentials) {
	fillString(&c.AppKey, other.AppKey)
	fillString(&c.TenantID, other.TenantID)
	fillString(&c.ClientID, other.ClientID)
	fillString(&c.ClientSecret, other.ClientSecret)
	fillString(&c.AppID, other.AppID)
	fillString(&c.Timezone, other.Timezone)
}

func fillString(dst *string, value string) {
	if *dst == "" {
		*dst = value
	}
}

// CredentialFile is the on-disk JSON layout of a credential file.
type CredentialFile struct {
	AppID        string `json:"SERVICETITAN_APP_ID"`
	AppKey       string `json:"SERVICETITAN_APP_KEY"`
	ClientID     string `json:"SERVICETITAN_CLIENT_ID"`
	ClientSecret string `json:"SERVICETITAN_CLIENT_SECRET"`
	TenantID     string `json:"SERVICETITAN_TENANT_ID"`
	Timezone     string `json:"SERVICETITAN_TIMEZONE"`
	Environment  string `json:"SERVICETITAN_API_ENVIRONMENT"`
}

// CredentialTemplate returns the blank template written by `servicetitan init`.
func CredentialTemplate() CredentialFile {
	return CredentialFile{
		Timezone:    constants.DefaultTimezone,
		Environment: string(EnvironmentProduction),
	}
}

// WriteCredentialTemplate writes the blank template to path, refusing to
// replace an existing file.
func WriteCredentialTemplate(path string) error {
	return WriteCredentialFile(path, CredentialTemplate(), false)
}

func (f *CredentialFile) credentials() *Credentials {
	return &Credentials{
		AppKey:       f.AppKey,
		TenantID:     f.TenantID,
		ClientID:     f.ClientID,
		ClientSecret: f.ClientSecret,
		AppID:        f.AppID,
		Timezone:     f.Timezone,
	}
}

// WriteCredentialFile writes file as indented JSON readable only by the owner.
func WriteCredentialFile(path string, file CredentialFile, overwrite bool) error {
	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding credential file: %w", err)
	}

	err = os.MkdirAll(filepath.Dir(path), constants.ConfigDirPerm)
	if err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}

	handle, err := os.OpenFile(filepath.Clean(path), flags, constants.ConfigFilePerm)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return &ConfigError{Op: "writing " + path, Err: ErrConfigFileExists}
		}

		return fmt.Errorf("opening credential file: %w", err)
	}

	_, err = handle.Write(append(data, '\n'))
	if err != nil {
		_ = handle.Close()

		return fmt.Errorf("writing credential file: %w", err)
	}

	err = handle.Close()
	if err != nil {
		return fmt.Errorf("closing credential file: %w", err)
	}

	return nil
}

func loadCredentialFile(path string) (*CredentialFile, error) {
	_, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &ConfigError{Op: "reading " + path, Err: ErrConfigFileNotFound}
		}

		return nil, &ConfigError{Op: "reading " + path, Err: err}
	}

	reader := viper.New()
	reader.SetConfigFile(path)
	reader.SetConfigType("json")

	err = reader.ReadInConfig()
	if err != nil {
		return nil, &ConfigError{Op: "reading " + path, Err: fmt.Errorf("%w: %w", ErrInvalidConfigJSON, err)}
	}

	return &CredentialFile{
		AppID:        reader.GetString(constants.EnvAppID),
		AppKey:       reader.GetString(constants.EnvAppKey),
		ClientID:     reader.GetString(constants.EnvClientID),
		ClientSecret: reader.GetString(constants.EnvClientSecret),
		TenantID:     reader.GetString(constants.EnvTenantID),
		Timezone:     reader.GetString(constants.EnvTimezone),
		Environment:  reader.GetString(constants.EnvAPIEnvironment),
	}, nil
}

var credentialValidator = newCredentialValidator()

func newCredentialValidator() *validator.Validate {
	validate := validator.New(validator.WithRequiredStructEnabled())
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}

		return name
	})

	return validate
}
