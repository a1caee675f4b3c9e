package main

import "github.com/frahmantamala/rbac-api/cmd"

func main() {
	cmd.Execute()
}
