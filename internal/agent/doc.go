// Package agent holds the modules run by mqtiny-agent.
//
// All topics live under one prefix:
//
//	<prefix>/status  heartbeat, published every interval
//	<prefix>/cmd     commands the agent answers
//	<prefix>/reply   command replies
package agent
