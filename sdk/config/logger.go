package config

type Logger struct {
	Path        string `mapstructure:"path"`        // 日志文件路径，为空则只输出到控制台
	Level       string `mapstructure:"level"`       // 日志级别
	Stdout      bool   `mapstructure:"stdout"`      // 是否输出到标准控制台
	MaxSize     int    `mapstructure:"maxSize"`     // 每个日志文件最大多少MB
	InfoMaxAge  int    `mapstructure:"infoMaxAge"`  // info日志文件保留天数
	ErrorMaxAge int    `mapstructure:"errorMaxAge"` // error日志文件保留天数
	MaxBackups  int    `mapstructure:"maxBackups"`  // 日志文件保留个数
}

var LoggerConfig = new(Logger)
