package uploader

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Uploader types.
const (
	TypeQuail = "quail"
	TypeS3    = "s3"
	TypeB2    = "b2"
	TypeLocal = "local"
)

// Config selects and configures the uploader.
type Config struct {
	Type  string      `yaml:"type"`
	S3    S3Config    `yaml:"s3"`
	B2    B2Config    `yaml:"b2"`
	Local LocalConfig `yaml:"local"`
}

// Validate validates the uploader configuration. Only the block of the
// selected type is checked.
func (c *Config) Validate() error {
	if c.Type == "" {
		c.Type = TypeQuail
	}
	if err := validation.ValidateStruct(c,
		validation.Field(&c.Type, validation.In(TypeQuail, TypeS3, TypeB2, TypeLocal)),
	); err != nil {
		return err
	}
	switch c.Type {
	case TypeS3:
		return c.S3.Validate()
	case TypeB2:
		return c.B2.Validate()
	case TypeLocal:
		return c.Local.Validate()
	}
	return nil
}

// S3Config configures an S3 compatible bucket.
type S3Config struct {
	Endpoint   string `yaml:"endpoint"`
	Region     string `yaml:"region"`
	Bucket     string `yaml:"bucket"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Secure     bool   `yaml:"secure"`
	Prefix     string `yaml:"prefix"`
	PublicBase string `yaml:"public_base"`
}

// Validate validates the S3 configuration.
func (c *S3Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Endpoint, validation.Required),
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.AccessKey, validation.Required),
		validation.Field(&c.SecretKey, validation.Required),
		validation.Field(&c.PublicBase, validation.Required),
	)
}

// B2Config configures a Backblaze B2 bucket.
type B2Config struct {
	KeyID          string `yaml:"key_id"`
	ApplicationKey string `yaml:"application_key"`
	Bucket         string `yaml:"bucket"`
	Prefix         string `yaml:"prefix"`
	PublicBase     string `yaml:"public_base"`
}

// Validate validates the B2 configuration.
func (c *B2Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.KeyID, validation.Required),
		validation.Field(&c.ApplicationKey, validation.Required),
		validation.Field(&c.Bucket, validation.Required),
		validation.Field(&c.PublicBase, validation.Required),
	)
}

// LocalConfig stores attachments in the vault, served by quailpub serve.
type LocalConfig struct {
	Dir        string `yaml:"dir"`
	PublicBase string `yaml:"public_base"`
}

// Validate validates the local configuration.
func (c *LocalConfig) Validate() error {
	if c.Dir == "" {
		c.Dir = "attachments"
	}
	return validation.ValidateStruct(c,
		validation.Field(&c.PublicBase, validation.Required),
	)
}
