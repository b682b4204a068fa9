package conf

import (
	"fmt"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// MustBindFlags binds flag names to keys of the global viper instance. Only
// flags the user set take precedence; unset flags fall through to the file,
// environment and defaults. A name missing from flags is a programming error
// and panics.
func MustBindFlags(flags *pflag.FlagSet, keys map[string]string) {
	for name, key := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			panic(fmt.Sprintf("binding flag %s: no such flag", name))
		}
		if err := viper.BindPFlag(key, flag); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", name, err))
		}
	}
}
