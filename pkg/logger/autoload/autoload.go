// Package autoload initializes the global logger from LOG_* environment
// variables on import:
//
//	import _ "github.com/scambait/honeynet/pkg/logger/autoload"
package autoload

import (
	configx "github.com/scambait/honeynet/pkg/config"
	logx "github.com/scambait/honeynet/pkg/logger"
)

func init() {
	logx.Init(*configx.MustNew[logx.Config]("LOG"))
}
