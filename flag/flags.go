// Copyright 2023 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

// Package flag provides helpers for normalizing, printing and sectioning
// command line flags.
package flag

import (
	goflag "flag"
	"strings"

	"github.com/spf13/pflag"

	"github.com/wangtaoking1/realtime/log"
)

// WordSepNormalizeFunc changes all flags that contain "_" separators to use
// "-" instead.
func WordSepNormalizeFunc(f *pflag.FlagSet, name string) pflag.NormalizedName {
	if strings.Contains(name, "_") {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	}

	return pflag.NormalizedName(name)
}

// InitFlags normalizes and parses the command line flags.
func InitFlags(flags *pflag.FlagSet) {
	flags.SetNormalizeFunc(WordSepNormalizeFunc)
	flags.AddGoFlagSet(goflag.CommandLine)
}

// PrintFlags logs the flags in the flagset.
func PrintFlags(flags *pflag.FlagSet) {
	flags.VisitAll(func(f *pflag.Flag) {
		log.Debugf("FLAG: --%s=%q", f.Name, f.Value)
	})
}
