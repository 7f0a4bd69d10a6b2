package logger

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap/zapcore"
)

type LoggerTestSuite struct {
	suite.Suite
}

func TestLoggerSuite(t *testing.T) {
	suite.Run(t, new(LoggerTestSuite))
}

func (suite *LoggerTestSuite) TestConsoleLogger() {
	log, err := New("debug", "console")
	suite.NoError(err)
	suite.NotNil(log)
	suite.True(log.Core().Enabled(zapcore.DebugLevel))

	// Should not panic
	log.Named("test").Info("console message")
}

func (suite *LoggerTestSuite) TestJSONLoggerLevel() {
	log, err := New("warn", "json")
	suite.NoError(err)
	suite.False(log.Core().Enabled(zapcore.InfoLevel))
	suite.True(log.Core().Enabled(zapcore.WarnLevel))
}

func (suite *LoggerTestSuite) TestInvalidLevel() {
	_, err := New("loud", "json")
	suite.Error(err)
}
