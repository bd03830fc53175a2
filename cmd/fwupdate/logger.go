package main

import (
	"context"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/urfave/cli/v3"
)

// setupLogging points glog at stderr and applies --verbosity.
func setupLogging(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	if !flag.Parsed() {
		if err := flag.CommandLine.Parse(nil); err != nil {
			return ctx, err
		}
	}
	if err := flag.Set("logtostderr", "true"); err != nil {
		return ctx, err
	}
	if err := flag.Set("v", strconv.Itoa(cmd.Int("verbosity"))); err != nil {
		return ctx, err
	}
	return ctx, nil
}

// glogLogger adapts glog to updater.Logger.
type glogLogger struct{}

func (glogLogger) Debug(msg string, keysAndValues ...interface{}) {
	glog.V(2).Infof("%s%s", msg, formatKV(keysAndValues))
}

func (glogLogger) Info(msg string, keysAndValues ...interface{}) {
	glog.V(1).Infof("%s%s", msg, formatKV(keysAndValues))
}

func (glogLogger) Error(msg string, keysAndValues ...interface{}) {
	glog.Errorf("%s%s", msg, formatKV(keysAndValues))
}

func formatKV(kv []interface{}) string {
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		if i+1 < len(kv) {
			fmt.Fprintf(&b, " %v=%v", kv[i], kv[i+1])
		} else {
			fmt.Fprintf(&b, " %v", kv[i])
		}
	}
	return b.String()
}
