package config

import "time"

var (
	DefaultMaxFileSize       = "100MiB"
	DefaultInspectTimeout    = 5 * time.Minute
	DefaultModificationDelay = 30 * time.Second
	DefaultDetectExitCode    = 1
)

type InspectorConfig struct {
	Mode           string        `json:"mode" yaml:"mode" desc:"inspection mode: attachment (windows zone policy), command (external scanner) or off"`
	Command        string        `json:"command" yaml:"command" desc:"external scanner command, first word is the binary"`
	Timeout        time.Duration `json:"timeout" yaml:"timeout" desc:"time allowed to inspect a single file"`
	DetectExitCode int           `json:"detect_exit_code" yaml:"detectExitCode" desc:"scanner exit code meaning a detection"`
}

type QuarantineConfig struct {
	Location string `json:"location" yaml:"location" desc:"directory where blocked files are sealed (encrypted, .sealed extension)"`
	Registry string `json:"registry" yaml:"registry" desc:"path to the database tracking sealed files (leave empty for in-memory store, lost on restart)"`
	Password string `json:"password" yaml:"password" password:"true" desc:"password used to seal blocked files"`
}

type JournalConfig struct {
	Location string `json:"location" yaml:"location" desc:"path to the finalize attempt journal database (leave empty for in-memory store, lost on restart)"`
}

type ExportConfig struct {
	Bucket          string `json:"bucket" yaml:"bucket" desc:"S3 bucket receiving journal exports"`
	Prefix          string `json:"prefix" yaml:"prefix" desc:"object key prefix for exported journals"`
	Region          string `json:"region" yaml:"region" desc:"S3 region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint" desc:"custom S3 endpoint (Minio and friends)"`
	AccessKeyID     string `json:"access_key_id" yaml:"accessKeyId" desc:"S3 access key id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secretAccessKey" password:"true" desc:"S3 secret access key"`
	Insecure        bool   `json:"insecure" yaml:"insecure" desc:"do not check S3 endpoint certificates"`
	UsePathStyle    bool   `json:"use_path_style" yaml:"usePathStyle" desc:"use path style S3 addressing"`
}

type MonitoringConfig struct {
	PreScan           bool          `json:"pre_scan,omitempty" yaml:"preScan" desc:"finalize all files already present in the intake when watching starts"`
	ModificationDelay time.Duration `json:"modification_delay" yaml:"modificationDelay" desc:"wait time after the last write before finalizing a file"`
}

type Config struct {
	// global
	Config      string `json:"config" yaml:"config" desc:"path to configuration file"`
	Intake      string `json:"intake" yaml:"intake" desc:"directory where completed downloads land before finalization"`
	Destination string `json:"destination" yaml:"destination" desc:"directory receiving finalized files"`
	MaxFileSize string `json:"max_file_size" yaml:"maxFileSize" desc:"maximum file size to finalize (e.g. '100MiB'), larger files are refused"`
	Debug       bool   `mapstructure:"debug" json:"debug" yaml:"debug" desc:"print debug strings"`
	Verbose     bool   `mapstructure:"verbose" json:"verbose" yaml:"verbose" desc:"report all finalized files, not just interrupted ones"`

	Inspector  InspectorConfig  `json:"inspector" yaml:"inspector" desc:"inspection service configuration"`
	Quarantine QuarantineConfig `json:"quarantine" yaml:"quarantine" desc:"quarantine configuration"`
	Journal    JournalConfig    `json:"journal" yaml:"journal" desc:"attempt journal configuration"`
	Export     ExportConfig     `json:"export" yaml:"export" desc:"journal export configuration"`
	Monitoring MonitoringConfig `json:"monitoring" yaml:"monitoring" desc:"intake watching configuration"`
}
