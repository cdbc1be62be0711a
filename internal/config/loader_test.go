package config_test

import (
	"os"
	"path/filepath"
	"testing"

	config "github.com/okian/verdict/internal/config"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLoad(t *testing.T) {
	Convey("Given no overrides", t, func() {
		t.Setenv("VERDICT_CONFIG", "")

		cfg, err := config.Load()

		Convey("Then defaults survive loading", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":9080")
			So(cfg.MaxStandingsLimit, ShouldEqual, 200)
		})
	})

	Convey("Given environment overrides", t, func() {
		t.Setenv("VERDICT_ADDR", ":7070")
		t.Setenv("VERDICT_LOG_LEVEL", "debug")
		t.Setenv("VERDICT_MAX_STANDINGS_LIMIT", "50")
		t.Setenv("VERDICT_RAND_SEED", "42")

		cfg, err := config.Load()

		Convey("Then env values override defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":7070")
			So(cfg.LogLevel, ShouldEqual, "debug")
			So(cfg.MaxStandingsLimit, ShouldEqual, 50)
			So(cfg.RandSeed, ShouldEqual, 42)
		})
	})

	Convey("Given a YAML config file", t, func() {
		// t.Setenv cleanup runs at the end of TestLoad, not between Convey
		// blocks, so clear the overrides set by the previous block.
		for _, key := range []string{"VERDICT_ADDR", "VERDICT_LOG_LEVEL", "VERDICT_MAX_STANDINGS_LIMIT", "VERDICT_RAND_SEED"} {
			So(os.Unsetenv(key), ShouldBeNil)
		}

		dir := t.TempDir()
		path := filepath.Join(dir, "verdict.yaml")
		So(os.WriteFile(path, []byte("addr: \":6060\"\nelo_k: 24\n"), 0o600), ShouldBeNil)
		t.Setenv("VERDICT_CONFIG", path)

		cfg, err := config.Load()

		Convey("Then file values override defaults", func() {
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":6060")
			So(cfg.EloK, ShouldEqual, 24)
		})

		Convey("And env still wins over the file", func() {
			t.Setenv("VERDICT_ADDR", ":5050")
			cfg, err := config.Load()
			So(err, ShouldBeNil)
			So(cfg.Addr, ShouldEqual, ":5050")
			So(cfg.EloK, ShouldEqual, 24)
		})
	})

	Convey("Given an unreadable config file", t, func() {
		t.Setenv("VERDICT_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

		_, err := config.Load()

		So(err, ShouldWrap, config.ErrLoadConfig)
	})

	Convey("Given invalid values", t, func() {
		Convey("An empty addr is rejected", func() {
			t.Setenv("VERDICT_CONFIG", "")
			t.Setenv("VERDICT_ADDR", "")

			_, err := config.Load()
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("A non-positive standings limit is rejected", func() {
			t.Setenv("VERDICT_CONFIG", "")
			t.Setenv("VERDICT_MAX_STANDINGS_LIMIT", "-1")

			_, err := config.Load()
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})

		Convey("A non-positive K-factor is rejected", func() {
			t.Setenv("VERDICT_CONFIG", "")
			t.Setenv("VERDICT_ELO_K", "0")

			_, err := config.Load()
			So(err, ShouldWrap, config.ErrInvalidConfig)
		})
	})
}
