package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"polyapprox/pkg/client"
	"polyapprox/pkg/query"
)

var addr string

func dial() (*client.Client, error) {
	return client.Dial(addr)
}

func parseFloats(args []string) ([]float64, error) {
	out := make([]float64, len(args))
	for i, a := range args {
		v, err := strconv.ParseFloat(a, 64)
		if err != nil {
			return nil, fmt.Errorf("bad number %q", a)
		}
		out[i] = v
	}
	return out, nil
}

func main() {
	root := &cobra.Command{
		Use:   "polyapprox-cli",
		Short: "Command line client for the polyapprox server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runShell()
		},
	}
	root.PersistentFlags().StringVar(&addr, "addr", "127.0.0.1:9090", "server TCP address")

	root.AddCommand(
		&cobra.Command{
			Use:   "observe <series> <time> <value>",
			Short: "Feed one sample into a series",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				nums, err := parseFloats(args[1:])
				if err != nil {
					return err
				}
				c, err := dial()
				if err != nil {
					return err
				}
				defer c.Close()
				if err := c.Observe(args[0], nums[0], nums[1]); err != nil {
					return err
				}
				fmt.Println("ok")
				return nil
			},
		},
		&cobra.Command{
			Use:   "extrapolate <series> <time>",
			Short: "Evaluate the series polynomial at a moment",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				nums, err := parseFloats(args[1:])
				if err != nil {
					return err
				}
				c, err := dial()
				if err != nil {
					return err
				}
				defer c.Close()
				v, err := c.Extrapolate(args[0], nums[0])
				if err != nil {
					return err
				}
				fmt.Println(v)
				return nil
			},
		},
		&cobra.Command{
			Use:   "coefs <series> [at]",
			Short: "Print the polynomial coefficients around a moment",
			Args:  cobra.RangeArgs(1, 2),
			RunE: func(cmd *cobra.Command, args []string) error {
				at := 0.0
				if len(args) == 2 {
					nums, err := parseFloats(args[1:])
					if err != nil {
						return err
					}
					at = nums[0]
				}
				c, err := dial()
				if err != nil {
					return err
				}
				defer c.Close()
				coefs, err := c.Coefs(args[0], at)
				if err != nil {
					return err
				}
				printCoefs(coefs, at)
				return nil
			},
		},
		&cobra.Command{
			Use:   "history <series> <from> <to>",
			Short: "Print the stored samples in a time window",
			Args:  cobra.ExactArgs(3),
			RunE: func(cmd *cobra.Command, args []string) error {
				nums, err := parseFloats(args[1:])
				if err != nil {
					return err
				}
				c, err := dial()
				if err != nil {
					return err
				}
				defer c.Close()
				recs, err := c.History(args[0], nums[0], nums[1])
				if err != nil {
					return err
				}
				for _, rec := range recs {
					fmt.Printf("%g\t%g\n", rec.Time, rec.Value)
				}
				fmt.Printf("(%d samples)\n", len(recs))
				return nil
			},
		},
		&cobra.Command{
			Use:   "forget <series>",
			Short: "Drop a series from the server",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				c, err := dial()
				if err != nil {
					return err
				}
				defer c.Close()
				if err := c.Forget(args[0]); err != nil {
					return err
				}
				fmt.Println("ok")
				return nil
			},
		},
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func printCoefs(coefs []float64, at float64) {
	terms := make([]string, len(coefs))
	for i, c := range coefs {
		switch i {
		case 0:
			terms[i] = fmt.Sprintf("%g", c)
		case 1:
			terms[i] = fmt.Sprintf("%g*(x-%g)", c, at)
		default:
			terms[i] = fmt.Sprintf("%g*(x-%g)^%d", c, at, i)
		}
	}
	fmt.Println(strings.Join(terms, " + "))
}

func runShell() error {
	c, err := dial()
	if err != nil {
		return err
	}
	defer c.Close()

	fmt.Println("polyapprox shell, type 'help' or 'exit'")
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("approx> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(line) {
		case "":
			continue
		case "exit", "quit":
			return nil
		case "help":
			fmt.Println("  OBSERVE <series> <time> <value>")
			fmt.Println("  EXTRAPOLATE <series> AT <time>")
			fmt.Println("  COEFS <series> [AT <time>]")
			fmt.Println("  HISTORY <series> [FROM <time> TO <time>]")
			fmt.Println("  FORGET <series>")
			continue
		}

		st, err := query.Parse(line)
		if err != nil {
			fmt.Println(err)
			continue
		}
		if err := execute(c, st); err != nil {
			fmt.Println("error:", err)
		}
	}
}

func execute(c *client.Client, st *query.Statement) error {
	switch st.Kind {
	case query.KindObserve:
		if err := c.Observe(st.Series, st.Time, st.Value); err != nil {
			return err
		}
		fmt.Println("ok")
	case query.KindExtrapolate:
		v, err := c.Extrapolate(st.Series, st.Time)
		if err != nil {
			return err
		}
		fmt.Println(v)
	case query.KindCoefs:
		coefs, err := c.Coefs(st.Series, st.Time)
		if err != nil {
			return err
		}
		printCoefs(coefs, st.Time)
	case query.KindHistory:
		recs, err := c.History(st.Series, st.From, st.To)
		if err != nil {
			return err
		}
		for _, rec := range recs {
			fmt.Printf("%g\t%g\n", rec.Time, rec.Value)
		}
		fmt.Printf("(%d samples)\n", len(recs))
	case query.KindForget:
		if err := c.Forget(st.Series); err != nil {
			return err
		}
		fmt.Println("ok")
	}
	return nil
}
