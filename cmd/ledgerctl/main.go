// Command ledgerctl runs operator tasks against the billing database.
package main

func main() {
	Execute()
}
