package config

import (
	"fmt"
	"strings"
)

// Validate 启动期配置校验，任一项不满足即拒绝启动
func (c *Config) Validate() error {
	var problems []string

	switch c.Database.Driver {
	case "postgres":
		if c.Database.Postgres.Host == "" {
			problems = append(problems, "database.postgres.host is required")
		}
	case "sqlite":
		if c.Database.SQLite.Path == "" {
			problems = append(problems, "database.sqlite.path is required")
		}
	default:
		problems = append(problems, fmt.Sprintf("database.driver %q is not supported", c.Database.Driver))
	}

	provider, ok := c.LLM.Providers[c.LLM.DefaultProvider]
	if !ok {
		problems = append(problems, fmt.Sprintf("llm.providers.%s is not configured", c.LLM.DefaultProvider))
	} else {
		switch provider.Type {
		case "", "openai", "ark":
		default:
			problems = append(problems, fmt.Sprintf("llm.providers.%s.type %q is not supported", c.LLM.DefaultProvider, provider.Type))
		}
		if strings.TrimSpace(provider.Model) == "" {
			problems = append(problems, fmt.Sprintf("llm.providers.%s.model is required", c.LLM.DefaultProvider))
		}
	}

	switch c.Image.Provider {
	case "openai", "ark":
		if strings.TrimSpace(c.Image.Model) == "" {
			problems = append(problems, "image.model is required")
		}
	case "mock":
	default:
		problems = append(problems, fmt.Sprintf("image.provider %q is not supported", c.Image.Provider))
	}
	if c.Image.MaxConcurrency <= 0 {
		problems = append(problems, "image.max_concurrency must be positive")
	}

	if c.Session.LockTTL <= 0 {
		problems = append(problems, "session.lock_ttl must be positive")
	}
	if c.Messaging.RedisStream.Enabled && !c.Cache.Redis.Enabled {
		problems = append(problems, "messaging.redis_stream requires cache.redis.enabled")
	}

	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// LLMProvider 返回默认 LLM 提供商配置
func (c *Config) LLMProvider() ProviderConfig {
	return c.LLM.Providers[c.LLM.DefaultProvider]
}
