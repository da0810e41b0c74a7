package cli

import (
	"os"

	"github.com/spf13/cobra"
)

// completionCommand generates shell completion scripts.
func (c *CLI) completionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion [bash|zsh|fish|powershell]",
		Short: "Generate a shell completion script",
		Long: `Generate a completion script for the named shell.

Load it into the current session:

  bash:       source <(opsched completion bash)
  zsh:        opsched completion zsh > "${fpath[1]}/_opsched"
  fish:       opsched completion fish | source
  powershell: opsched completion powershell | Out-String | Invoke-Expression

To load it in every session, write the script where your shell looks for
completions, such as /etc/bash_completion.d/opsched or
~/.config/fish/completions/opsched.fish. Zsh needs compinit enabled first:

  echo "autoload -U compinit; compinit" >> ~/.zshrc`,
		DisableFlagsInUseLine: true,
		ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
		Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			switch args[0] {
			case "bash":
				return cmd.Root().GenBashCompletion(os.Stdout)
			case "zsh":
				return cmd.Root().GenZshCompletion(os.Stdout)
			case "fish":
				return cmd.Root().GenFishCompletion(os.Stdout, true)
			case "powershell":
				return cmd.Root().GenPowerShellCompletionWithDesc(os.Stdout)
			}
			return nil
		},
	}
}
