package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strconv"

	"github.com/andys/customer_import/customer"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/urfave/cli/v2"
)

type fakeConfig struct {
	Output     string
	Rows       int
	ShortEvery int
	Seed       uint64
}

func main() {
	var cfg fakeConfig

	app := &cli.App{
		Name:  "customers-fake",
		Usage: "Generate a customers CSV file with fake data",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:        "output",
				Aliases:     []string{"o"},
				Usage:       "File to write, - for stdout",
				Value:       "customers.csv",
				Destination: &cfg.Output,
			},
			&cli.IntFlag{
				Name:        "rows",
				Aliases:     []string{"n"},
				Usage:       "Number of data rows",
				Value:       1000,
				Destination: &cfg.Rows,
			},
			&cli.IntFlag{
				Name:        "short-every",
				Usage:       "Truncate every Nth row to four fields (0 disables)",
				Destination: &cfg.ShortEvery,
			},
			&cli.Uint64Flag{
				Name:        "seed",
				Usage:       "Random seed, 0 for a random one",
				Destination: &cfg.Seed,
			},
		},
		Action: func(c *cli.Context) error {
			out := io.Writer(os.Stdout)
			if cfg.Output != "-" {
				f, err := os.Create(cfg.Output)
				if err != nil {
					return fmt.Errorf("failed to create output file: %w", err)
				}
				defer f.Close()
				out = f
			}

			if err := generate(out, &cfg); err != nil {
				return err
			}
			if cfg.Output != "-" {
				fmt.Printf("Wrote %d customers to %s\n", cfg.Rows, cfg.Output)
			}
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func generate(out io.Writer, cfg *fakeConfig) error {
	faker := gofakeit.New(cfg.Seed)
	w := csv.NewWriter(out)

	if err := w.Write(customer.Fields); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for i := 1; i <= cfg.Rows; i++ {
		row := []string{
			strconv.Itoa(i),
			faker.FirstName(),
			faker.LastName(),
			faker.Email(),
			faker.Gender(),
			faker.Phone(),
			faker.Country(),
			faker.Date().Format("2006-01-02"),
		}
		if cfg.ShortEvery > 0 && i%cfg.ShortEvery == 0 {
			row = row[:4]
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i, err)
		}
	}

	w.Flush()
	return w.Error()
}
