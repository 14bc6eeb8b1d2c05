package registry

import (
	"fmt"
)

var ErrCacheNotFound = fmt.Errorf("cache not exist")
var ErrCacheExists = fmt.Errorf("cache already exists")
var ErrStoreNotFound = fmt.Errorf("store not exist")
var ErrStoreExists = fmt.Errorf("store already exists")
