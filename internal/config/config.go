package config

import (
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
	Engine    EngineConfig
	Audio     AudioConfig
}

type ServerConfig struct {
	Port string
	Env  string
}

type SchedulerConfig struct {
	Workers    int
	QueueDepth int
	JobTimeout time.Duration
}

type StorageConfig struct {
	OutputRoot string
	AssetsRoot string
}

type EngineConfig struct {
	FFmpegBin  string
	FFprobeBin string
}

type AudioConfig struct {
	SampleRate    int
	TargetLUFS    float64
	UseVAD        bool
	VADFrameMS    int
	VADThreshold  float64
	VADHangover   int
	DuckDepthDB   float64
	DuckAttackMS  int
	DuckReleaseMS int
}

func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// Environment variables
	viper.AutomaticEnv()

	// Defaults
	viper.SetDefault("server.port", "8090")
	viper.SetDefault("server.env", "development")
	viper.SetDefault("scheduler.workers", 2)
	viper.SetDefault("scheduler.queue_depth", 3)
	viper.SetDefault("scheduler.job_timeout_sec", 600)
	viper.SetDefault("storage.output_root", "outputs")
	viper.SetDefault("storage.assets_root", "assets")
	viper.SetDefault("engine.ffmpeg_bin", "ffmpeg")
	viper.SetDefault("engine.ffprobe_bin", "ffprobe")
	viper.SetDefault("audio.sample_rate", 48000)
	viper.SetDefault("audio.target_lufs", -16.0)
	viper.SetDefault("audio.use_vad", true)
	viper.SetDefault("audio.vad_frame_ms", 20)
	viper.SetDefault("audio.vad_threshold_db", -40.0)
	viper.SetDefault("audio.vad_hangover_frames", 5)
	viper.SetDefault("audio.duck_depth_db", 12.0)
	viper.SetDefault("audio.duck_attack_ms", 20)
	viper.SetDefault("audio.duck_release_ms", 300)

	// Try to read config file (optional)
	_ = viper.ReadInConfig()

	cfg := &Config{
		Server: ServerConfig{
			Port: viper.GetString("server.port"),
			Env:  viper.GetString("server.env"),
		},
		Scheduler: SchedulerConfig{
			Workers:    viper.GetInt("scheduler.workers"),
			QueueDepth: viper.GetInt("scheduler.queue_depth"),
			JobTimeout: time.Duration(viper.GetInt("scheduler.job_timeout_sec")) * time.Second,
		},
		Storage: StorageConfig{
			OutputRoot: viper.GetString("storage.output_root"),
			AssetsRoot: viper.GetString("storage.assets_root"),
		},
		Engine: EngineConfig{
			FFmpegBin:  viper.GetString("engine.ffmpeg_bin"),
			FFprobeBin: viper.GetString("engine.ffprobe_bin"),
		},
		Audio: AudioConfig{
			SampleRate:    viper.GetInt("audio.sample_rate"),
			TargetLUFS:    viper.GetFloat64("audio.target_lufs"),
			UseVAD:        viper.GetBool("audio.use_vad"),
			VADFrameMS:    viper.GetInt("audio.vad_frame_ms"),
			VADThreshold:  viper.GetFloat64("audio.vad_threshold_db"),
			VADHangover:   viper.GetInt("audio.vad_hangover_frames"),
			DuckDepthDB:   viper.GetFloat64("audio.duck_depth_db"),
			DuckAttackMS:  viper.GetInt("audio.duck_attack_ms"),
			DuckReleaseMS: viper.GetInt("audio.duck_release_ms"),
		},
	}

	return cfg, nil
}
