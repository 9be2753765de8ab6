package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/matchtune/internal/app"
	"github.com/okian/matchtune/internal/config"
	"github.com/okian/matchtune/internal/synth"
	"github.com/smartystreets/goconvey/convey"
)

func TestRun(t *testing.T) {
	t.Setenv(config.EnvConfigPath, "")

	convey.Convey("Given an empty output directory", t, func() {
		ctx := context.Background()
		dir := t.TempDir()
		var stdout, stderr bytes.Buffer

		convey.Convey("When generating a small catalog", func() {
			code := run(ctx, []string{"-properties", "30", "-profiles", "3", "-seed", "5", "-out", dir}, &stdout, &stderr)

			convey.Convey("Then both files are written with the requested counts", func() {
				convey.So(code, convey.ShouldEqual, exitOK)
				convey.So(stdout.String(), convey.ShouldContainSubstring, filepath.Join(dir, app.PropertiesFile))

				body, err := os.ReadFile(filepath.Join(dir, app.PropertiesFile))
				convey.So(err, convey.ShouldBeNil)
				var listings []synth.Listing
				convey.So(json.Unmarshal(body, &listings), convey.ShouldBeNil)
				convey.So(listings, convey.ShouldHaveLength, 30)

				body, err = os.ReadFile(filepath.Join(dir, app.ProfilesFile))
				convey.So(err, convey.ShouldBeNil)
				var profiles synth.ProfileFile
				convey.So(json.Unmarshal(body, &profiles), convey.ShouldBeNil)
				convey.So(profiles.Profiles, convey.ShouldHaveLength, 3)
			})
		})

		convey.Convey("When a count is negative", func() {
			code := run(ctx, []string{"-properties", "-1", "-out", dir}, &stdout, &stderr)

			convey.Convey("Then it is a usage error", func() {
				convey.So(code, convey.ShouldEqual, exitUsage)
				convey.So(stderr.String(), convey.ShouldContainSubstring, "invalid configuration")
			})
		})

		convey.Convey("When a flag is unknown", func() {
			code := run(ctx, []string{"-listings", "3"}, &stdout, &stderr)
			convey.So(code, convey.ShouldEqual, exitUsage)
		})
	})
}
