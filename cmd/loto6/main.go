package main

import (
	"context"

	"loto6-archive/cmd/loto6/commands"
	"loto6-archive/lib/serviceutil"
)

func main() {
	ctx, cancel := serviceutil.SignalContext(context.Background())
	defer cancel()
	commands.ExecuteContext(ctx)
}
