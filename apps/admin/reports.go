package main

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"
)

func (cli *commandLine) newTable() *tabwriter.Writer {
	return tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
}

func amount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

// results prints the ranked results of a class, as `uname`.
func (cli *commandLine) results(ctx context.Context, uname, pwd string, classID, examID int) error {
	id, err := cli.usrSvc.Authenticate(ctx, uname, pwd)
	if err != nil {
		return err
	}
	res, err := cli.examSvc.ClassResults(ctx, id, classID, examID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s - %s\n\n", res.Class.Label(), res.Exam.Name)
	tw := cli.newTable()
	header := []string{"RANK", "ROLL", "NAME"}
	for _, subj := range res.Subjects {
		header = append(header, strings.ToUpper(subj.Name))
	}
	header = append(header, "TOTAL", "%", "GRADE", "STATUS")
	fmt.Fprintln(tw, strings.Join(header, "\t"))

	for _, r := range res.Results {
		row := []string{fmt.Sprint(r.Rank), r.Student.RollNo, r.Student.Name}
		for _, s := range r.Subjects {
			row = append(row, fmt.Sprintf("%g", s.Score))
		}
		row = append(row, fmt.Sprintf("%g/%g", r.Total, r.Max), amount(r.Percentage), string(r.Grade), string(r.Status))
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

// fees prints the fee balances of a class, as `uname`.
func (cli *commandLine) fees(ctx context.Context, uname, pwd string, classID int) error {
	id, err := cli.usrSvc.Authenticate(ctx, uname, pwd)
	if err != nil {
		return err
	}
	sum, err := cli.feeSvc.ClassSummary(ctx, id, classID)
	if err != nil {
		return err
	}

	fmt.Fprintf(cli.out, "%s - due per student: %s\n\n", sum.Class.Label(), amount(sum.Due))
	tw := cli.newTable()
	fmt.Fprintln(tw, "ROLL\tNAME\tDUE\tPAID\tBALANCE")
	for _, b := range sum.Students {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", b.Student.RollNo, b.Student.Name, amount(b.Due), amount(b.Paid), amount(b.Balance))
	}
	return tw.Flush()
}
