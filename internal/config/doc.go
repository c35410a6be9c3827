// Package config loads server settings from the environment.
//
// Every key is prefixed with MAZE_MCP_. A .env file in the working directory
// is read first when present; real environment variables win over it.
//
//	MAZE_MCP_LOG_LEVEL          trace, debug, info, warn, error (default info)
//	MAZE_MCP_LOG_FORMAT         text, json, nested (default text)
//	MAZE_MCP_LOG_FILE           optional rotated log file
//	MAZE_MCP_MAX_DIMENSION      longest frame side after loading (default 1024, 0 = off)
//	MAZE_MCP_TEMPLATE_RADIUS    block matching patch half-size (default 7)
//	MAZE_MCP_SEARCH_RADIUS      block matching search half-size (default 12)
//	MAZE_MCP_BLUR_RADIUS        pre-matching Gaussian blur radius (default 1.0)
//	MAZE_MCP_RANSAC_ITERATIONS  robust estimation samples (default 200)
//	MAZE_MCP_RANSAC_THRESHOLD   inlier distance in pixels (default 3)
//	MAZE_MCP_RANSAC_SEED        sampling seed, 0 for the fixed default
package config
