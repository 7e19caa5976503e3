package main

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/andys/customer_import/config"
	"github.com/andys/customer_import/source"
	"github.com/andys/customer_import/transform"
	"github.com/frankban/quicktest"
	"go.uber.org/zap"
)

func writeCSV(c *quicktest.C, lines ...string) string {
	path := filepath.Join(c.TempDir(), "customers.csv")
	content := "id,firstName,lastName,email,gender,contactNo,country,dob\n" + strings.Join(lines, "\n") + "\n"
	c.Assert(os.WriteFile(path, []byte(content), 0o644), quicktest.IsNil)
	return path
}

func testConfig(c *quicktest.C, path string) *config.Config {
	cfg := &config.Config{
		SourceFile:     path,
		DestinationURL: "memory://",
		LinesToSkip:    1,
		MetricsFile:    filepath.Join(c.TempDir(), "import.prom"),
	}
	c.Assert(cfg.Validate(), quicktest.IsNil)
	return cfg
}

func TestRun_ImportsIntoMemory(t *testing.T) {
	c := quicktest.New(t)
	path := writeCSV(c,
		"1,jane,doe,JANE@X.COM,female,555,nz,1990-01-02",
		"2,john,smith,not-an-email,male,556,au,1991-02-03",
		"3,Ann,Lee,ann@x.com",
	)
	cfg := testConfig(c, path)
	cfg.Normalize = true
	cfg.ValidateRecords = true

	err := run(context.Background(), cfg, zap.NewNop())
	c.Assert(err, quicktest.IsNil)

	data, err := os.ReadFile(cfg.MetricsFile)
	c.Assert(err, quicktest.IsNil)
	c.Assert(string(data), quicktest.Contains, `customer_import_records_total{result="written"} 2`)
	c.Assert(string(data), quicktest.Contains, `customer_import_records_total{result="transform_failed"} 1`)
}

func TestRun_MissingFile(t *testing.T) {
	c := quicktest.New(t)
	cfg := testConfig(c, filepath.Join(c.TempDir(), "missing.csv"))

	err := run(context.Background(), cfg, zap.NewNop())
	c.Assert(errors.Is(err, source.ErrUnavailable), quicktest.IsTrue)
}

func TestRun_BadDestination(t *testing.T) {
	c := quicktest.New(t)
	cfg := testConfig(c, writeCSV(c, "1,a"))
	cfg.DestinationURL = "sqlite://x"

	err := run(context.Background(), cfg, zap.NewNop())
	c.Assert(err, quicktest.ErrorMatches, "failed to connect to destination database: unsupported database type: sqlite")
}

func TestBuildTransformer(t *testing.T) {
	c := quicktest.New(t)

	tr, err := buildTransformer(&config.Config{})
	c.Assert(err, quicktest.IsNil)
	c.Assert(tr, quicktest.Equals, transform.Identity)

	tr, err = buildTransformer(&config.Config{Normalize: true, ValidateRecords: true, AnonymizeFields: []string{"email"}})
	c.Assert(err, quicktest.IsNil)
	chain, ok := tr.(transform.Chain)
	c.Assert(ok, quicktest.IsTrue)
	c.Assert(chain, quicktest.HasLen, 3)

	_, err = buildTransformer(&config.Config{AnonymizeFields: []string{"bogus"}})
	c.Assert(err, quicktest.ErrorMatches, `unknown field "bogus"`)
}
