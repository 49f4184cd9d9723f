// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joho/godotenv"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
)

// AppConfig 包含应用程序的所有配置
type AppConfig struct {
	// 基础配置
	Port         string `json:"port"`
	OpenAIAPIKey string `json:"openai_api_key,omitempty"`
	DataDir      string `json:"data_dir"`
	MediaDir     string `json:"media_dir"`
	LogDir       string `json:"log_dir"`
	DebugMode    bool   `json:"debug_mode"`

	// LLM相关配置
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`

	// 故事与插图生成配置
	StoryModel       string   `json:"story_model"`
	LearningModel    string   `json:"learning_model"`
	ImageModel       string   `json:"image_model"`
	ImageFallbacks   []string `json:"image_fallbacks"`
	AllowGPTImage    bool     `json:"allow_gpt_image"`
	DefaultImageSize string   `json:"default_image_size"`
	ImageQuality     string   `json:"image_quality"`
}

// Config 存储应用基础配置
type Config struct {
	Port         string
	OpenAIAPIKey string
	DataDir      string
	MediaDir     string
	LogDir       string
	DebugMode    bool
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	godotenv.Load()

	config := &Config{
		Port:         getEnv("PORT", "8080"),
		OpenAIAPIKey: getEnv("OPENAI_API_KEY", ""),
		DataDir:      getEnvPath("DATA_DIR", "data"),
		MediaDir:     getEnvPath("MEDIA_DIR", "media"),
		LogDir:       getEnvPath("LOG_DIR", "logs"),
		DebugMode:    getEnvBool("DEBUG_MODE", false),
	}

	if config.OpenAIAPIKey == "" {
		// 只记录警告，不返回错误
		log.Println("警告: 未设置OpenAI API密钥，故事与插图生成将不可用")
	}

	return config, nil
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径，如果不存在则返回默认值
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	// 确保目录存在
	if _, err := os.Stat(path); os.IsNotExist(err) {
		err = os.MkdirAll(path, 0755)
		if err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	return value == "true" || value == "1" || value == "yes"
}

// getEnvList 获取逗号分隔的环境变量
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	configFile = filepath.Join(dataDir, "config.json")

	// 加载基础配置
	baseConfig, err := Load()
	if err != nil {
		return err
	}

	configMutex.Lock()
	defer configMutex.Unlock()

	currentConfig = &AppConfig{
		Port:         baseConfig.Port,
		OpenAIAPIKey: baseConfig.OpenAIAPIKey,
		DataDir:      baseConfig.DataDir,
		MediaDir:     baseConfig.MediaDir,
		LogDir:       baseConfig.LogDir,
		DebugMode:    baseConfig.DebugMode,
		LLMProvider:  getEnv("LLM_PROVIDER", "openai"),
		LLMConfig: map[string]string{
			"api_key":       baseConfig.OpenAIAPIKey,
			"default_model": getEnv("STORY_MODEL", "gpt-4o-mini"),
		},
		StoryModel:       getEnv("STORY_MODEL", "gpt-4o-mini"),
		LearningModel:    getEnv("LEARNING_MODEL", "gpt-4o-mini"),
		ImageModel:       getEnv("IMAGE_MODEL", "dall-e-2"),
		ImageFallbacks:   getEnvList("IMAGE_FALLBACK_MODELS", []string{"dall-e-3"}),
		AllowGPTImage:    getEnvBool("ALLOW_GPT_IMAGE", false),
		DefaultImageSize: getEnv("IMAGE_SIZE", "512x512"),
		ImageQuality:     getEnv("IMAGE_QUALITY", "low"),
	}

	// 尝试从文件加载已保存的配置
	if _, err := os.Stat(configFile); !os.IsNotExist(err) {
		data, err := os.ReadFile(configFile)
		if err == nil {
			var savedConfig AppConfig
			if json.Unmarshal(data, &savedConfig) == nil {
				// 合并配置，保留文件中的LLM与生成设置，但使用最新的基础配置
				savedConfig.Port = baseConfig.Port
				savedConfig.DataDir = baseConfig.DataDir
				savedConfig.MediaDir = baseConfig.MediaDir
				savedConfig.LogDir = baseConfig.LogDir
				savedConfig.DebugMode = baseConfig.DebugMode

				// 如果文件中没有API密钥，使用环境变量的密钥
				if savedConfig.LLMConfig != nil && savedConfig.LLMConfig["api_key"] == "" {
					savedConfig.LLMConfig["api_key"] = baseConfig.OpenAIAPIKey
				}

				// 文件缺省时回落到初始值
				if savedConfig.StoryModel == "" {
					savedConfig.StoryModel = currentConfig.StoryModel
				}
				if savedConfig.LearningModel == "" {
					savedConfig.LearningModel = currentConfig.LearningModel
				}
				if savedConfig.ImageModel == "" {
					savedConfig.ImageModel = currentConfig.ImageModel
				}
				if len(savedConfig.ImageFallbacks) == 0 {
					savedConfig.ImageFallbacks = currentConfig.ImageFallbacks
				}
				if savedConfig.DefaultImageSize == "" {
					savedConfig.DefaultImageSize = currentConfig.DefaultImageSize
				}
				if savedConfig.ImageQuality == "" {
					savedConfig.ImageQuality = currentConfig.ImageQuality
				}

				currentConfig = &savedConfig
			}
		}
	}

	// 除非显式允许，gpt-image 系列不作为首选图像模型
	if !currentConfig.AllowGPTImage && strings.HasPrefix(currentConfig.ImageModel, "gpt-image") {
		log.Printf("警告: 未启用ALLOW_GPT_IMAGE，图像模型 %s 回落到 dall-e-2", currentConfig.ImageModel)
		currentConfig.ImageModel = "dall-e-2"
	}

	// 保存初始配置到文件
	return SaveConfig()
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		// 紧急情况，返回一个基本配置
		baseConfig, _ := Load()
		return &AppConfig{
			Port:         baseConfig.Port,
			OpenAIAPIKey: baseConfig.OpenAIAPIKey,
			DataDir:      baseConfig.DataDir,
			MediaDir:     baseConfig.MediaDir,
			LogDir:       baseConfig.LogDir,
			DebugMode:    baseConfig.DebugMode,
			LLMProvider:  "openai",
			LLMConfig: map[string]string{
				"api_key": baseConfig.OpenAIAPIKey,
			},
			StoryModel:       getEnv("STORY_MODEL", "gpt-4o-mini"),
			LearningModel:    getEnv("LEARNING_MODEL", "gpt-4o-mini"),
			ImageModel:       getEnv("IMAGE_MODEL", "dall-e-2"),
			ImageFallbacks:   getEnvList("IMAGE_FALLBACK_MODELS", []string{"dall-e-3"}),
			AllowGPTImage:    getEnvBool("ALLOW_GPT_IMAGE", false),
			DefaultImageSize: getEnv("IMAGE_SIZE", "512x512"),
			ImageQuality:     getEnv("IMAGE_QUALITY", "low"),
		}
	}

	// 返回配置的副本
	configCopy := *currentConfig
	return &configCopy
}

// UpdateLLMConfig 更新LLM配置
func UpdateLLMConfig(provider string, config map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = config

	return SaveConfig()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	// 确保目录存在
	dir := filepath.Dir(configFile)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("创建配置目录失败: %w", err)
		}
	}

	// 序列化并保存
	data, err := json.MarshalIndent(currentConfig, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	return os.WriteFile(configFile, data, 0644)
}
