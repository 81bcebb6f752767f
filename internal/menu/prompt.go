package menu

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"fintrack/internal/core"
)

// errInputClosed ends the session when the input stream runs out.
var errInputClosed = errors.New("input closed")

type prompter struct {
	in  *bufio.Scanner
	out io.Writer
}

func (p *prompter) printf(format string, args ...any) {
	fmt.Fprintf(p.out, format, args...)
}

func (p *prompter) println(s string) {
	fmt.Fprintln(p.out, s)
}

// ask prints msg and returns the next input line without its line break.
func (p *prompter) ask(msg string) (string, error) {
	p.printf("%s", msg)
	if !p.in.Scan() {
		if err := p.in.Err(); err != nil {
			return "", fmt.Errorf("read input: %w", err)
		}
		return "", errInputClosed
	}
	return strings.TrimRight(p.in.Text(), "\r"), nil
}

func (p *prompter) askAmount(msg string) (core.Money, error) {
	return p.askMoney(msg, core.ParseAmount, "\nInvalid input. Please enter a positive numerical value.\n")
}

// askLookupAmount reads the amount of an existing record, which may be zero
// or negative when it was loaded from disk.
func (p *prompter) askLookupAmount(msg string) (core.Money, error) {
	return p.askMoney(msg, core.ParseLookupAmount, "\nInvalid input. Please enter a numerical value.\n")
}

func (p *prompter) askMoney(msg string, parse func(string) (core.Money, error), invalid string) (core.Money, error) {
	for {
		s, err := p.ask(msg)
		if err != nil {
			return core.Money{}, err
		}
		m, err := parse(s)
		if err == nil {
			return m, nil
		}
		p.println(invalid)
	}
}

func (p *prompter) askCategory(msg string) (string, error) {
	for {
		s, err := p.ask(msg)
		if err != nil {
			return "", err
		}
		c, err := core.NormalizeCategory(s)
		if err == nil {
			return c, nil
		}
		p.println("\nInvalid purpose. Please enter a non-empty purpose.\n")
	}
}

func (p *prompter) askType(msg string) (core.TransactionType, error) {
	for {
		s, err := p.ask(msg)
		if err != nil {
			return "", err
		}
		t, err := core.ParseType(s)
		if err == nil {
			return t, nil
		}
		p.println("\nInvalid Transaction type entered. Please type CR or DR\n")
	}
}

func (p *prompter) askInt(msg string) (string, error) {
	for {
		s, err := p.ask(msg)
		if err != nil {
			return "", err
		}
		if _, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return s, nil
		}
		p.println("\nInvalid input. Please enter an integer value.\n")
	}
}

// askDate reads day, month and year separately and repeats all three until
// they form a real date.
func (p *prompter) askDate() (core.Date, error) {
	for {
		day, err := p.askInt("Enter the day the transaction took place : ")
		if err != nil {
			return core.Date{}, err
		}
		month, err := p.askInt("Enter the month the transaction took place : ")
		if err != nil {
			return core.Date{}, err
		}
		year, err := p.askInt("Enter the year the transaction took place : ")
		if err != nil {
			return core.Date{}, err
		}
		d, err := core.ParseDateParts(day, month, year)
		if err == nil {
			return d, nil
		}
		p.println("\nInvalid date. Please enter the correct date!\n")
	}
}

func (p *prompter) askYesNo(msg string) (bool, error) {
	for {
		s, err := p.ask(msg)
		if err != nil {
			return false, err
		}
		switch strings.ToUpper(strings.TrimSpace(s)) {
		case "Y":
			return true, nil
		case "N":
			return false, nil
		}
		p.println("\nInvalid letter entered. Please type Y or N\n")
	}
}

func (p *prompter) askField(msg string) (core.Field, error) {
	for {
		s, err := p.ask(msg)
		if err != nil {
			return "", err
		}
		f, err := core.ParseField(s)
		if err == nil {
			return f, nil
		}
		p.println("\nInvalid field. Please try again.\n")
	}
}

// transactionPrompts are the three questions that identify or describe a
// transaction; they differ between add, update and delete. lookup marks
// prompts that identify an existing record.
type transactionPrompts struct {
	amount   string
	category string
	typ      string
	lookup   bool
}

func (p *prompter) askTransaction(q transactionPrompts) (string, core.Transaction, error) {
	ask := p.askAmount
	if q.lookup {
		ask = p.askLookupAmount
	}
	amount, err := ask(q.amount)
	if err != nil {
		return "", core.Transaction{}, err
	}
	category, err := p.askCategory(q.category)
	if err != nil {
		return "", core.Transaction{}, err
	}
	typ, err := p.askType(q.typ)
	if err != nil {
		return "", core.Transaction{}, err
	}
	date, err := p.askDate()
	if err != nil {
		return "", core.Transaction{}, err
	}
	return category, core.NewTransaction(amount, typ, date), nil
}
