package formula

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Descriptor is the package metadata a package manager consumes.
type Descriptor struct {
	// Name is the formula name, e.g. "procdump"
	Name string `yaml:"name" validate:"required,formulaname"`
	// Desc is the one-line description
	Desc string `yaml:"desc" validate:"required"`
	// Homepage is the project page
	Homepage string `yaml:"homepage" validate:"required,url"`
	// URL locates the release archive (file://, http:// or https://)
	URL string `yaml:"url" validate:"required,url"`
	// SHA256 is the lowercase hex checksum of the archive
	SHA256 string `yaml:"sha256" validate:"required,sha256hex"`
	// Version is the release version
	Version string `yaml:"version" validate:"required,pkgversion"`
	// License is an SPDX identifier
	License string `yaml:"license,omitempty"`
	// MinMacOS optionally constrains the oldest supported macOS release
	MinMacOS string `yaml:"min_macos,omitempty" validate:"omitempty,oneof=big_sur monterey ventura sonoma sequoia tahoe"`
	// Binaries are archive entries installed into bin
	Binaries []string `yaml:"binaries" validate:"required,min=1,dive,required,artifact"`
	// ManPages are archive entries installed into share/man/man<section>
	ManPages []string `yaml:"man_pages,omitempty" validate:"dive,required,artifact,manpage"`
}

var (
	nameRe    = regexp.MustCompile(`^[a-z0-9][a-z0-9+_.-]*(@[0-9][0-9.]*)?$`)
	versionRe = regexp.MustCompile(`^[0-9]+(\.[0-9]+)*([-+.][0-9A-Za-z.]+)?$`)
	manRe     = regexp.MustCompile(`\.[1-9]$`)
	sha256Re  = regexp.MustCompile(`^[0-9a-f]{64}$`)

	descriptorValidator = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	must := func(err error) {
		if err != nil {
			panic(err)
		}
	}
	must(v.RegisterValidation("formulaname", func(fl validator.FieldLevel) bool {
		return nameRe.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("sha256hex", func(fl validator.FieldLevel) bool {
		return sha256Re.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("pkgversion", func(fl validator.FieldLevel) bool {
		return versionRe.MatchString(fl.Field().String())
	}))
	// archive entries must be relative and stay inside the archive root
	must(v.RegisterValidation("artifact", func(fl validator.FieldLevel) bool {
		p := fl.Field().String()
		return p != "" && filepath.IsLocal(p)
	}))
	must(v.RegisterValidation("manpage", func(fl validator.FieldLevel) bool {
		return manRe.MatchString(fl.Field().String())
	}))
	return v
}

// Load reads a YAML descriptor and validates it
func Load(path string) (*Descriptor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &OpError{Op: OpLoad, Path: path, Err: err}
	}
	d, err := Parse(data)
	if err != nil {
		return nil, &OpError{Op: OpLoad, Path: path, Err: err}
	}
	return d, nil
}

// Parse decodes a YAML descriptor and validates it
func Parse(data []byte) (*Descriptor, error) {
	var d Descriptor
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding descriptor: %w", err)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return &d, nil
}

// Validate checks every field and reports all failures at once
func (d *Descriptor) Validate() error {
	err := descriptorValidator.Struct(d)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidDescriptor, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %s", fe.Namespace(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidDescriptor, strings.Join(fields, "; "))
}

// ClassName returns the Ruby class name Homebrew derives from the formula
// name: "procdump" is Procdump, "my-tool" is MyTool and "tool@2.1" is ToolAT21.
func (d *Descriptor) ClassName() string {
	name := strings.ReplaceAll(d.Name, "@", "AT")
	var b strings.Builder
	upper := true
	for _, r := range name {
		switch {
		case r == '-' || r == '_' || r == '.' || r == '+':
			upper = true
		case upper:
			b.WriteRune(unicode.ToUpper(r))
			upper = false
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ManSection returns the section number of a man page entry, e.g. "1" for "procdump.1"
func ManSection(page string) string {
	return strings.TrimPrefix(filepath.Ext(page), ".")
}
