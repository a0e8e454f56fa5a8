// The main package for the harvester executable.
package main

import (
	"github.com/JakeFAU/annual-report-harvester/cmd"
)

func main() {
	cmd.Execute()
}
