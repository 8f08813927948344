// Copyright © 2025 Steve Taranto staranto@gmail.com
// SPDX-License-Identifier: MIT

package command

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/urfave/cli/v3"
)

// GlobalFlagsValidator checks the flags that every query command shares but
// that can arrive from config or env, where the per-flag Validator does not
// run.
func GlobalFlagsValidator(ctx context.Context, c *cli.Command) error {
	if c.String("endpoint") != "" {
		if err := EndpointValidator(c.String("endpoint")); err != nil {
			return fmt.Errorf("--endpoint %w", err)
		}
	}
	if o := c.String("output"); o != "" {
		if err := OutputValidator(o); err != nil {
			return fmt.Errorf("--output %w", err)
		}
	}
	return nil
}

type FlagValidatorType func(any) error

func FlagValidators(value any, validators ...FlagValidatorType) error {
	for _, v := range validators {
		if err := v(value); err != nil {
			return err
		}
	}
	return nil
}

// JammedFlagValidator verifies that the arg following a flag does not begin
// with '--'.  urfave/cli allows this and I don't see how to turn it off.
func JammedFlagValidator(value any) error {
	if strings.HasPrefix(value.(string), "--") {
		return errors.New("must not begin with '--'")
	}
	return nil
}

// NotBlankValidator rejects empty or whitespace only values.
func NotBlankValidator(value any) error {
	if strings.TrimSpace(value.(string)) == "" {
		return errors.New("must not be blank")
	}
	return nil
}

// EndpointValidator requires an absolute http or https URL.
func EndpointValidator(value any) error {
	u, err := url.Parse(value.(string))
	if err != nil {
		return fmt.Errorf("must be a URL: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("must be an http or https URL")
	}
	return nil
}

func OutputValidator(value any) error {
	var validOutputFlagValues = []string{"text", "json", "raw", "yaml"}
	valid := false
	for _, v := range validOutputFlagValues {
		if v == value {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("must be one of %v", validOutputFlagValues)
	}
	return nil
}
