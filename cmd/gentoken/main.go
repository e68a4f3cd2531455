// Prints a fresh token-format value (64 hex chars). Handy for seeding trial
// tokens in manual testing and for smoke-testing the redeem endpoints.
package main

import (
	"fmt"
	"os"

	"github.com/smolentsev/hookbin/internal/service/secrets"
)

func main() {
	token, err := secrets.NewToken()
	if err != nil {
		fmt.Printf("error while generating token: %v", err)
		os.Exit(1)
	}

	fmt.Println(token)
}
