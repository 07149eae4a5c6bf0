package logging

import (
	"os"
	"path/filepath"
	"testing"

	"go.viam.com/test"
)

func TestObservedLevels(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)

	logger.Debugw("raster built", "size", 64)
	logger.Info("tile done")
	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logs.All()[0].Message, test.ShouldEqual, "raster built")
	test.That(t, logs.All()[0].ContextMap()["size"], test.ShouldEqual, int64(64))

	logger.SetLevel(WARN)
	test.That(t, logger.GetLevel(), test.ShouldEqual, WARN)
	logger.Infof("dropped %d", 1)
	logger.Warnf("kept %d", 2)
	test.That(t, logs.Len(), test.ShouldEqual, 3)
	test.That(t, logs.All()[2].Message, test.ShouldEqual, "kept 2")
}

func TestSubloggerLevelIsIndependent(t *testing.T) {
	logger, logs := NewObservedTestLogger(t)
	sub := logger.Sublogger("refine")
	sub.SetLevel(ERROR)

	sub.Warn("hidden")
	logger.Warn("shown")
	test.That(t, logs.Len(), test.ShouldEqual, 1)
	test.That(t, logs.All()[0].Message, test.ShouldEqual, "shown")

	sub.Error("boom")
	test.That(t, logs.Len(), test.ShouldEqual, 2)
	test.That(t, logs.All()[1].LoggerName, test.ShouldEqual, "refine")
}

func TestLevelFromString(t *testing.T) {
	for name, expected := range map[string]Level{
		"debug":   DEBUG,
		"INFO":    INFO,
		"warning": WARN,
		"Error":   ERROR,
	} {
		level, err := LevelFromString(name)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, level, test.ShouldEqual, expected)
	}
	_, err := LevelFromString("loud")
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBlankLoggerDiscards(t *testing.T) {
	logger := NewBlankLogger("quiet")
	logger.Errorw("nobody hears this", "k", "v")
	test.That(t, logger.Sync(), test.ShouldBeNil)
}

func TestFileLoggerWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "contours.log")
	logger, closer := NewFileLogger("cmd", path, INFO)
	logger.Debugw("skipped", "k", 1)
	logger.Infow("tile summary", "contours", 3)
	test.That(t, closer.Close(), test.ShouldBeNil)

	data, err := os.ReadFile(path)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, string(data), test.ShouldContainSubstring, `"msg":"tile summary"`)
	test.That(t, string(data), test.ShouldContainSubstring, `"contours":3`)
	test.That(t, string(data), test.ShouldNotContainSubstring, "skipped")
}
