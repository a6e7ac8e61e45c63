package cmd

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var secretCmd = &cobra.Command{
	Use:   "secret",
	Short: "Generate a random secret key",
	Long:  `Generate a cryptographically random secret key suitable for SECRET_KEY.`,
	Run:   runSecret,
}

func init() {
	rootCmd.AddCommand(secretCmd)
}

func runSecret(_ *cobra.Command, _ []string) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		logrus.WithError(err).Fatal("Failed to generate secret")
	}
	fmt.Println(hex.EncodeToString(buf))
}
