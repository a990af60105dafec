package middleware

// StrictRateLimiter - For credential endpoints (register, login, change-password)
// Burst: 5 requests, Sustained: 1 request per 6 seconds
func StrictRateLimiter() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   5,
		RefillRate: 1.0 / 6,
	}
}

// GenerousRateLimiter - For read endpoints (task list, activity)
// Burst: 100 requests, Sustained: 50 requests per second
func GenerousRateLimiter() *RateLimiterConfig {
	return &RateLimiterConfig{
		Capacity:   100,
		RefillRate: 50.0,
	}
}
