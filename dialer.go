package pollhttp

import (
	"github.com/frankli0324/pollhttp/internal/dialer"
	"github.com/frankli0324/pollhttp/internal/netpool"
)

type Dialer = dialer.Dialer
type CoreDialer = dialer.CoreDialer

type ProxyConfig = dialer.ProxyConfig
type ResolveConfig = dialer.ResolveConfig

type PoolGroup = netpool.PoolGroup

var (
	NewCoreDialer = dialer.NewCoreDialer
	NewPoolGroup  = netpool.NewGroup
	StaticProxy   = dialer.StaticProxy
)
