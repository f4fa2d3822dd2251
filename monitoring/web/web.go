// Package web holds the page served by the monitoring server.
package web

import (
	"embed"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"runtime"
	"strconv"

	"github.com/sirupsen/logrus"
)

// DevEnv names the variable that makes the server read the page from disk,
// so that it can be edited without rebuilding. It takes a boolean, or the
// directory to serve.
const DevEnv = "MESISIM_MONITOR_DEV"

//go:embed dist/*
var dist embed.FS

// GetAssets returns the files of the monitoring page.
func GetAssets() http.FileSystem {
	if dir, ok := devDir(); ok {
		logrus.WithField("dir", dir).Info("serving monitoring page from disk")
		return http.Dir(dir)
	}

	sub, err := fs.Sub(dist, "dist")
	if err != nil {
		panic(err)
	}

	return http.FS(sub)
}

func devDir() (string, bool) {
	v := os.Getenv(DevEnv)
	if v == "" {
		return "", false
	}

	if on, err := strconv.ParseBool(v); err == nil {
		if !on {
			return "", false
		}

		_, file, _, ok := runtime.Caller(0)
		if !ok {
			panic("cannot locate the monitoring page sources")
		}

		return filepath.Join(filepath.Dir(file), "dist"), true
	}

	if info, err := os.Stat(v); err == nil && info.IsDir() {
		return v, true
	}

	logrus.Warnf("%s=%q is neither a boolean nor a directory", DevEnv, v)

	return "", false
}
