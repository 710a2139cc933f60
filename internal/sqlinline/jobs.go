package sqlinline

const jobColumns = `id, subscription_id, period_date, due_at, run_at, attempt_count, status, last_error, lease_expires_at, created_at, updated_at`

const QCreateJob = `--sql 8b4e2f97-3a1d-4c6b-8e5f-9d2a7c0b4f18
insert into jobs (id, subscription_id, period_date, due_at, run_at, status)
values ($1, $2, $3, $4, $4, 'pending')
returning ` + jobColumns + `;
`

const QGetJobByID = `--sql 4c7d1a38-9e5b-4f2c-a6d8-3b0e9f1c7a52
select ` + jobColumns + `
from jobs
where id = $1;
`

// Claim-next uses FOR UPDATE SKIP LOCKED so concurrent workers never block on
// or double-claim the same row.
const QClaimNextJob = `--sql 6e3b8d52-4a7f-4e1c-b9a3-2d5c0f8e6b41
with next_job as (
    select id
    from jobs
    where status = 'pending'
      and run_at <= $1
    order by run_at asc
    for update skip locked
    limit 1
),
claimed as (
    update jobs
    set status = 'running', lease_expires_at = $2, updated_at = now()
    where id in (select id from next_job)
    returning ` + jobColumns + `
)
select * from claimed;
`

const QClaimJob = `--sql a2f8c514-7b3e-4d9a-8c6f-1e4b0d7a3c96
update jobs
set status = 'running', lease_expires_at = $3, updated_at = now()
where id = $1
  and status = 'pending'
  and run_at <= $2
returning ` + jobColumns + `;
`

// Completing a job and advancing the subscription's delivery guard happen in
// one statement so a crash can never separate them. The result counts the job
// update, not the subscription update, so completing a job whose subscription
// row has since been deleted still reads as success.
const QCompleteJob = `--sql d5a1e847-2c9b-4f6d-a8e3-7b0f4c1d9a25
with done as (
    update jobs
    set status = 'succeeded', last_error = '', lease_expires_at = null, updated_at = now()
    where id = $1 and status = 'running'
    returning subscription_id, period_date
),
advanced as (
    update subscriptions s
    set last_successful_delivery = greatest(coalesce(s.last_successful_delivery, d.period_date), d.period_date),
        updated_at = now()
    from done d
    where s.id = d.subscription_id
)
select count(*) from done;
`

const QRecordJobFailure = `--sql f08c6b29-5d4a-4e7b-9f1c-3a8e2d6c0b74
update jobs
set status = 'pending', attempt_count = $2, last_error = $3, run_at = $4,
    lease_expires_at = null, updated_at = now()
where id = $1 and status = 'running';
`

const QAbandonJob = `--sql 1b9f4e63-8a2d-4c5f-b7e1-6d0a3f9c8e42
update jobs
set status = 'abandoned', last_error = $2, lease_expires_at = null, updated_at = now()
where id = $1 and status in ('running', 'pending');
`

const QReleaseExpiredJobs = `--sql 7a5d2c90-3f8e-4b1a-9d6c-0e4f7b2a5d83
update jobs
set status = 'pending', lease_expires_at = null, updated_at = now()
where status = 'running' and lease_expires_at < $1;
`

const QListAbandonedJobs = `--sql c3e7f1a5-6b9d-4a2e-8f4c-5d1b0a8e3f67
select ` + jobColumns + `
from jobs
where status = 'abandoned'
order by updated_at desc;
`

const QRequeueJob = `--sql 90d4b7e2-1f5a-4c8b-a2d6-8e3c9f0b5a71
update jobs
set status = 'pending', attempt_count = 0, last_error = '', run_at = now(),
    lease_expires_at = null, updated_at = now()
where id = $1 and status = 'abandoned';
`

const QCountJobsByStatus = `--sql 58e2a9c6-4d7b-4f3e-b1a8-2c6f0d9e4b35
select status, count(*)
from jobs
group by status;
`
