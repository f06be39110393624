package main

import (
	"fmt"
	"os"
	"strconv"

	"bbot/internal/store"

	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// Админский инструмент для файлов состояния бота: активный набор пар
// и накопленный профит. Пути берутся из того же конфига, что и у бота.

func usage() {
	fmt.Println(`usage:
  pairs list                 show active pairs
  pairs add <SYMBOL>         add a pair to the active set
  pairs remove <SYMBOL>      remove a pair from the active set
  pairs profit               show accumulated profit
  pairs profit-reset [VALUE] reset accumulated profit (default 0)`)
	os.Exit(2)
}

func loadPaths() (pairsFile, profitFile string, err error) {
	viper.SetConfigName("values_local")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("configs")
	viper.AddConfigPath(".")
	viper.SetDefault("pairs_file", "trading_pairs.txt")
	viper.SetDefault("profit_file", "total_profit")
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return "", "", errors.Wrap(err, "read config")
		}
	}
	if v := os.Getenv("PAIRS_FILE"); v != "" {
		viper.Set("pairs_file", v)
	}
	if v := os.Getenv("PROFIT_FILE"); v != "" {
		viper.Set("profit_file", v)
	}
	return viper.GetString("pairs_file"), viper.GetString("profit_file"), nil
}

func main() {
	if len(os.Args) < 2 {
		usage()
	}

	pairsFile, profitFile, err := loadPaths()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	pairs := store.NewPairSet(pairsFile)
	profit := store.NewProfitLedger(profitFile)

	switch os.Args[1] {
	case "list":
		symbols, err := pairs.Load()
		fail(errors.Wrap(err, "load pairs"))
		for _, s := range symbols {
			fmt.Println(s)
		}

	case "add":
		if len(os.Args) != 3 {
			usage()
		}
		added, err := pairs.Add(os.Args[2])
		fail(errors.Wrap(err, "add pair"))
		if !added {
			fmt.Printf("%s is already in the active set\n", os.Args[2])
			return
		}
		fmt.Printf("%s added\n", os.Args[2])

	case "remove":
		if len(os.Args) != 3 {
			usage()
		}
		removed, err := pairs.Remove(os.Args[2])
		fail(errors.Wrap(err, "remove pair"))
		if !removed {
			fmt.Printf("%s is not in the active set\n", os.Args[2])
			return
		}
		fmt.Printf("%s removed\n", os.Args[2])

	case "profit":
		total, err := profit.Load()
		fail(errors.Wrap(err, "load profit"))
		fmt.Printf("%.8f\n", total)

	case "profit-reset":
		value := 0.0
		if len(os.Args) == 3 {
			v, err := strconv.ParseFloat(os.Args[2], 64)
			fail(errors.Wrap(err, "parse value"))
			value = v
		}
		total, err := profit.Load()
		fail(errors.Wrap(err, "load profit"))
		_, err = profit.Add(value - total)
		fail(errors.Wrap(err, "reset profit"))
		fmt.Printf("profit set to %.8f\n", value)

	default:
		usage()
	}
}

func fail(err error) {
	if errors.Cause(err) == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
