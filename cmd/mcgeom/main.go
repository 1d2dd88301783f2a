// Command mcgeom loads a geometry description and answers point, ray and
// random walk queries against it.
//
//	mcgeom --geometry shells.lisp locate 1.5 0 0
//	mcgeom --config run.gcfg walk --histories 10000
//	mcgeom --geometry shells.lisp mesh cells.json
package main

import (
	"os"

	"github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd(os.Stdout).Execute(); err != nil {
		logrus.Error(err)
		os.Exit(1)
	}
}
